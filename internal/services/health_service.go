package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"supplypulse/internal/config"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	datasets  *DatasetService
	sessions  *SessionStore
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
	Sources   []SourceInfo                 `json:"sources,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. datasets and sessions may
// be nil in tools that serve no API.
func NewHealthService(paths *config.Paths, datasets *DatasetService, sessions *SessionStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized", slog.String("version", contracts.Version))

	return &HealthService{
		version:   contracts.GetVersionString(),
		paths:     paths,
		datasets:  datasets,
		sessions:  sessions,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns liveness, runtime figures and the configured sources
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectRuntimeStats(hs.startTime)
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Runtime:   &stats,
	}
	if hs.datasets != nil {
		status.Sources = hs.datasets.Sources()
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.Int("goroutines", stats.Goroutines))
	return status
}

// ReadinessCheck reports whether the data directory is usable and at least
// one dataset source is available.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"data":     hs.checkDataHealth(),
			"datasets": hs.checkDatasetHealth(),
			"sessions": hs.checkSessionHealth(),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready")
	}
	return status
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "ready", Message: "No data directory configured"}
	}
	info, err := os.Stat(hs.paths.DataDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not found: %s", hs.paths.DataDir),
		}
	}
	return ServiceHealth{Status: "ready", Message: "Data directory is accessible"}
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset service not initialized"}
	}
	available := 0
	for _, src := range hs.datasets.Sources() {
		if src.Available {
			available++
		}
	}
	if available == 0 {
		return ServiceHealth{Status: "not_ready", Message: "No dataset source is available"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d dataset sources available", available)}
}

func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "not_ready", Message: "session store not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d open sessions", hs.sessions.Len())}
}

// Version returns build and runtime version details
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

package api

import (
	"time"

	"supplypulse/pkg/contracts/domain"
)

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresIn string    `json:"expires_in,omitempty"`
}

// DashboardResponse wraps a dashboard with its cache status
type DashboardResponse struct {
	*domain.Dashboard
	Records int  `json:"records"`
	Cached  bool `json:"cached"`
}

// ForecastResponse carries forecast outcomes and stock recommendations
type ForecastResponse struct {
	Kind        domain.DatasetKind `json:"kind"`
	Fingerprint string             `json:"fingerprint"`
	Filter      domain.Filter      `json:"filter"`
	domain.ForecastBatch
	Skipped []domain.SkipEntry `json:"skipped"`
	Cached  bool               `json:"cached"`
}

// AnomalyResponse carries the anomaly report of a dashboard
type AnomalyResponse struct {
	Kind        domain.DatasetKind `json:"kind"`
	Fingerprint string             `json:"fingerprint"`
	Filter      domain.Filter      `json:"filter"`
	domain.AnomalyReport
	Cached bool `json:"cached"`
}

// ReloadResponse confirms a dataset cache invalidation
type ReloadResponse struct {
	Kind       domain.DatasetKind `json:"kind"`
	ReloadedAt time.Time          `json:"reloaded_at"`
}

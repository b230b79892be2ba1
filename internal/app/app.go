package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"supplypulse/internal/config"
	"supplypulse/internal/dataprocessing"
	"supplypulse/internal/exporter"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/services"
	transport "supplypulse/internal/transport/http"
	"supplypulse/pkg/contracts"
	"supplypulse/pkg/contracts/domain"
)

// Application represents the main application container
type Application struct {
	Config  *config.Config
	Paths   *config.Paths
	Logger  *slog.Logger
	OTel    *infrastructure.OTelProviders
	Metrics *infrastructure.PipelineMetrics

	Datasets *services.DatasetService
	Sessions *services.SessionStore
	Analysis *services.AnalysisService
	Reports  *services.ReportService
	Health   *services.HealthService
	Exporter *exporter.Exporter

	Router http.Handler
	Server *http.Server

	runtimeMetrics metric.Registration
	startTime      time.Time
}

// NewApplication loads configuration from configFile (empty searches the
// usual locations), initializes the global logger and wires the application.
func NewApplication(ctx context.Context, configFile string) (*Application, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	if cfg.Logging.FilePath != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.Resolve(cfg.Logging.FilePath)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(ctx, cfg, logger)
}

// New wires every component for cfg. Directories are created and the
// OpenTelemetry providers installed; no listener is opened until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreatePipelineMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		OTel:      otelProviders,
		Metrics:   metrics,
		startTime: time.Now(),
	}

	a.runtimeMetrics, err = infrastructure.RegisterRuntimeMetrics(otelProviders.Meter, a.startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	a.initializeServices(ctx)

	a.Router = transport.NewRouter(transport.RouterDeps{
		Config:     cfg,
		Analysis:   a.Analysis,
		Health:     a.Health,
		Exporter:   a.Exporter,
		Tracer:     otelProviders.Tracer,
		Metrics:    metrics,
		Exposition: otelProviders.PrometheusHTTP,
		Logger:     logger,
	})
	a.createServer()
	return a, nil
}

// initializeServices builds the service graph
func (a *Application) initializeServices(ctx context.Context) {
	cfg := a.Config

	a.Datasets = services.NewDatasetService(cfg, a.Paths, a.sheetsLoader(ctx), a.Metrics, a.Logger)
	dashboards := services.NewDashboardService(cfg.Analytics, a.Metrics, a.Logger)
	a.Sessions = services.NewSessionStore(cfg.Sessions, a.Metrics, a.Logger)
	a.Analysis = services.NewAnalysisService(a.Datasets, dashboards, a.Sessions, a.Metrics, a.Logger)
	a.Exporter = exporter.NewExporter(a.Paths, a.Logger)
	a.Reports = services.NewReportService(a.Datasets, dashboards, a.Exporter, a.Logger)
	a.Health = services.NewHealthService(a.Paths, a.Datasets, a.Sessions, a.Logger)
}

// sheetsLoader returns a Google Sheets client when a dataset is configured
// as a spreadsheet range. A client that cannot be built leaves those
// datasets unavailable rather than failing startup.
func (a *Application) sheetsLoader(ctx context.Context) services.SheetsLoader {
	var kinds []string
	for _, kind := range domain.Kinds {
		if src, _ := a.Config.Datasets.Source(kind); src.IsSheets() {
			kinds = append(kinds, string(kind))
		}
	}
	if len(kinds) == 0 {
		return nil
	}

	opts := dataprocessing.DefaultParserOptions()
	opts.UnknownLabel = a.Config.Analytics.UnknownLabel
	credentials := a.Paths.Resolve(a.Config.Datasets.CredentialsFile)

	source, err := dataprocessing.NewSheetsSource(ctx, credentials, dataprocessing.NewParser(opts, a.Logger), a.Logger)
	if err != nil {
		a.Logger.WarnContext(ctx, "Google Sheets datasets unavailable",
			slog.String("datasets", strings.Join(kinds, ",")),
			slog.String("credentials", credentials),
			slog.String("error", err.Error()))
		return nil
	}
	return source
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	s := a.Config.Server
	a.Server = &http.Server{
		Addr:           s.Addr(),
		Handler:        a.Router,
		ReadTimeout:    s.ReadTimeout,
		WriteTimeout:   s.WriteTimeout,
		IdleTimeout:    s.IdleTimeout,
		MaxHeaderBytes: s.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Serve listens until ctx is cancelled, sweeping idle sessions alongside,
// then shuts the server down gracefully.
func (a *Application) Serve(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting HTTP server",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Sessions.Run(ctx, config.SessionSweepPeriod)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Duration("uptime", time.Since(a.startTime)))
	return errors.Join(errs...)
}

// Close releases telemetry resources. Tools that never call Serve use it
// directly.
func (a *Application) Close(ctx context.Context) error {
	if a.runtimeMetrics != nil {
		if err := a.runtimeMetrics.Unregister(); err != nil {
			a.Logger.WarnContext(ctx, "Failed to unregister runtime metrics", slog.String("error", err.Error()))
		}
		a.runtimeMetrics = nil
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down OpenTelemetry: %w", err)
		}
	}
	return nil
}

// Run serves until SIGINT or SIGTERM
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

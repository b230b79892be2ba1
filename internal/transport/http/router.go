package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/exporter"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/middleware"
	"supplypulse/internal/services"
)

// RouterDeps holds everything the router serves
type RouterDeps struct {
	Config   *config.Config
	Analysis *services.AnalysisService
	Health   *services.HealthService
	Exporter *exporter.Exporter

	Tracer     trace.Tracer
	Metrics    *infrastructure.PipelineMetrics
	Exposition http.Handler
	Logger     *slog.Logger
}

// NewErrorHandler returns the RFC 7807 error handler with the service
// errors mapped to their HTTP statuses.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(logger, includeStack).
		Register(services.ErrSessionNotFound, http.StatusNotFound, apierrors.TypeSessionNotFound, "Session Not Found").
		Register(services.ErrSessionLimit, http.StatusServiceUnavailable, apierrors.TypeSessionLimit, "Too Many Sessions").
		Register(services.ErrUnknownDataset, http.StatusNotFound, apierrors.TypeDatasetUnknown, "Unknown Dataset").
		Register(services.ErrSourceNotConfigured, http.StatusNotFound, apierrors.TypeDataUnconfigured, "Dataset Not Configured").
		Register(services.ErrUnsupportedExtension, http.StatusUnsupportedMediaType, apierrors.TypeUnsupportedMedia, "Unsupported File Type").
		Register(services.ErrInvalidInput, http.StatusBadRequest, apierrors.TypeValidation, "Invalid Input").
		Register(exporter.ErrUnknownTable, http.StatusBadRequest, apierrors.TypeValidation, "Unknown Table")
}

// NewRouter builds the chi router with the middleware chain
// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit → Timeout.
func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errorHandler := NewErrorHandler(logger, cfg.Logging.Development)
	validator := middleware.NewValidator()

	r := chi.NewRouter()
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.NewOTelMiddleware(deps.Tracer, deps.Metrics, logger).Handler)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(errorHandler))
	r.Use(middleware.StripSlashes)
	r.Use(middleware.SecurityHeaders)
	if cfg.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.Security.AllowedOrigins,
			Logger:         logger,
		}))
	}

	r.Handle(config.MetricsEndpoint, NewMetricsHandler(deps.Exposition))

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if rl := cfg.Security.RateLimit; rl.Enabled {
			r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, logger).Handler)
		}
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout, logger))

		if deps.Health != nil {
			health := NewHealthHandler(deps.Health, logger)
			r.Get("/health", health.HealthCheck)
			r.Get("/health/ready", health.ReadinessCheck)
			r.Get("/version", health.Version)
		}

		if deps.Analysis != nil {
			datasets := NewDatasetHandler(deps.Analysis, deps.Analysis.Datasets(), validator, errorHandler, cfg.Upload.MaxBytes, logger)
			r.Mount("/datasets", datasets.Routes())

			exp := deps.Exporter
			if exp == nil {
				exp = exporter.NewExporter(nil, logger)
			}
			sessions := NewSessionHandler(deps.Analysis, deps.Analysis.Sessions(), exp, validator, errorHandler, deps.Metrics, logger)
			r.Mount("/sessions", sessions.Routes())
		}
	})

	return r
}

package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/exporter"
	"supplypulse/internal/infrastructure"
	"supplypulse/internal/middleware"
	"supplypulse/internal/services"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

// CacheHeader reports whether a result came from the session cache
const CacheHeader = "X-Cache"

// SessionHandler serves sessions and the per-session dashboard resources
type SessionHandler struct {
	analysis     AnalysisServiceInterface
	sessions     SessionStoreInterface
	exporter     *exporter.Exporter
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	metrics      *infrastructure.PipelineMetrics
	logger       *slog.Logger
}

// NewSessionHandler creates a session handler. metrics may be nil.
func NewSessionHandler(analysis AnalysisServiceInterface, sessions SessionStoreInterface, exp *exporter.Exporter, v *middleware.Validator, errorHandler *apierrors.ErrorHandler, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &SessionHandler{
		analysis:     analysis,
		sessions:     sessions,
		exporter:     exp,
		validator:    v,
		errorHandler: errorHandler,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "session_handler")),
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateSession)

	r.Route("/{id}", func(r chi.Router) {
		r.Delete("/", h.DeleteSession)

		r.Route("/datasets/{kind}", func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return kindCtx(h.validator, h.errorHandler, next)
			})
			r.Get("/dashboard", h.Dashboard)
			r.Get("/forecast", h.Forecast)
			r.Get("/anomalies", h.Anomalies)
			r.Get("/export", h.Export)
		})
	})
	return r
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.SessionResponse{SessionID: s.ID, CreatedAt: s.CreatedAt})
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseDashboard reads the session, kind, filters and top from the request
func (h *SessionHandler) parseDashboard(r *http.Request) (api.DashboardRequest, domain.Filter, error) {
	q := r.URL.Query()
	req := api.DashboardRequest{
		SessionRequest: api.SessionRequest{SessionID: chi.URLParam(r, "id")},
		DatasetRequest: api.DatasetRequest{Kind: string(kindFrom(r.Context()))},
		FilterRequest: api.FilterRequest{
			DateRangeRequest: api.DateRangeRequest{From: q.Get("from"), To: q.Get("to")},
			Organization:     q.Get("organization"),
			Category:         q.Get("category"),
			Equipment:        q.Get("equipment"),
			Group:            q.Get("group"),
			Supplier:         q.Get("supplier"),
		},
	}

	top, err := middleware.IntParam(r, "top")
	if err != nil {
		return req, domain.Filter{}, err
	}
	req.Top = top

	if err := h.validator.Struct(req); err != nil {
		return req, domain.Filter{}, err
	}
	filter, err := req.Filter()
	if err != nil {
		return req, domain.Filter{}, apierrors.ErrValidation("to", err.Error())
	}
	return req, filter, nil
}

// result parses the request and fetches the session result
func (h *SessionHandler) result(w http.ResponseWriter, r *http.Request) (*services.Result, bool, bool) {
	req, filter, err := h.parseDashboard(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false, false
	}
	return h.fetch(w, r, req, filter)
}

func (h *SessionHandler) fetch(w http.ResponseWriter, r *http.Request, req api.DashboardRequest, filter domain.Filter) (*services.Result, bool, bool) {
	res, cached, err := h.analysis.Dashboard(r.Context(), req.SessionID, domain.DatasetKind(req.Kind), filter, req.Top)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false, false
	}

	if cached {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
	return res, cached, true
}

// Dashboard handles GET /api/sessions/{id}/datasets/{kind}/dashboard
func (h *SessionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	res, cached, ok := h.result(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, api.DashboardResponse{
		Dashboard: res.Dashboard,
		Records:   res.Records.Len(),
		Cached:    cached,
	})
}

// Forecast handles GET /api/sessions/{id}/datasets/{kind}/forecast
func (h *SessionHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	res, cached, ok := h.result(w, r)
	if !ok {
		return
	}
	d := res.Dashboard
	render.JSON(w, r, api.ForecastResponse{
		Kind:          d.Kind,
		Fingerprint:   d.Fingerprint,
		Filter:        d.Filter,
		ForecastBatch: d.Forecast,
		Skipped:       d.Forecast.Skipped(),
		Cached:        cached,
	})
}

// Anomalies handles GET /api/sessions/{id}/datasets/{kind}/anomalies
func (h *SessionHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	res, cached, ok := h.result(w, r)
	if !ok {
		return
	}
	d := res.Dashboard
	render.JSON(w, r, api.AnomalyResponse{
		Kind:          d.Kind,
		Fingerprint:   d.Fingerprint,
		Filter:        d.Filter,
		AnomalyReport: d.Anomalies,
		Cached:        cached,
	})
}

// Export handles GET /api/sessions/{id}/datasets/{kind}/export?format=csv|xlsx|html.
// For CSV, ?table= selects a dashboard table; the default is the filtered records.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	dreq, filter, err := h.parseDashboard(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := r.URL.Query()
	req := api.ExportRequest{DashboardRequest: dreq, Format: q.Get("format"), Table: q.Get("table")}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	res, _, ok := h.fetch(w, r, dreq, filter)
	if !ok {
		return
	}

	// Encode fully before writing so a failure still yields a problem response
	var buf bytes.Buffer
	if err := h.exporter.Encode(&buf, format, res.Dashboard, res.Records, req.Table); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	h.metrics.Exports.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", string(format)),
		attribute.String("kind", string(res.Dashboard.Kind)),
	))
	h.logger.InfoContext(ctx, "Dashboard exported",
		slog.String("kind", string(res.Dashboard.Kind)),
		slog.String("format", string(format)),
		slog.Int("bytes", buf.Len()))

	name := exporter.FileName(res.Dashboard)
	if req.Table != "" {
		name += "_" + req.Table
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

package services

import (
	"context"
	"io"
	"log/slog"

	"supplypulse/internal/dataprocessing"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// AnalysisService answers dashboard requests for a session: it loads the
// shared dataset, then serves the session's cached result or builds a new
// one.
type AnalysisService struct {
	datasets   *DatasetService
	dashboards *DashboardService
	sessions   *SessionStore
	metrics    *infrastructure.PipelineMetrics
	logger     *slog.Logger
}

// NewAnalysisService wires the analysis service. metrics may be nil.
func NewAnalysisService(datasets *DatasetService, dashboards *DashboardService, sessions *SessionStore, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &AnalysisService{
		datasets:   datasets,
		dashboards: dashboards,
		sessions:   sessions,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "analysis_service")),
	}
}

// Sessions exposes the session store
func (a *AnalysisService) Sessions() *SessionStore {
	return a.sessions
}

// Datasets exposes the dataset service
func (a *AnalysisService) Datasets() *DatasetService {
	return a.datasets
}

// Dashboard returns the dashboard of kind for filter within a session.
// cached reports whether the session already held the result.
func (a *AnalysisService) Dashboard(ctx context.Context, sessionID string, kind domain.DatasetKind, filter domain.Filter, topN int) (result *Result, cached bool, err error) {
	session, err := a.sessions.Get(sessionID)
	if err != nil {
		return nil, false, err
	}

	ds, err := a.datasets.Load(ctx, kind)
	if err != nil {
		return nil, false, err
	}

	key := ResultKey(ds.Fingerprint(), filter, a.dashboards.TopN(topN))
	if r, ok := session.Lookup(key); ok {
		infrastructure.RecordCacheLookup(ctx, a.metrics, "session_result", true)
		return r, true, nil
	}
	infrastructure.RecordCacheLookup(ctx, a.metrics, "session_result", false)

	d, err := a.dashboards.Build(ctx, ds, filter, topN)
	if err != nil {
		return nil, false, err
	}
	result = &Result{Dashboard: d, Records: dataprocessing.Apply(ds, filter)}
	session.Store(key, result)

	a.logger.DebugContext(ctx, "Session result stored",
		slog.String("session_id", session.ID),
		slog.String("key", key),
		slog.Int("session_results", session.Len()))
	return result, false, nil
}

// Choices lists the filter values available for a dataset kind
func (a *AnalysisService) Choices(ctx context.Context, kind domain.DatasetKind) (dataprocessing.Choices, error) {
	ds, err := a.datasets.Load(ctx, kind)
	if err != nil {
		return dataprocessing.Choices{}, err
	}
	return dataprocessing.FilterChoices(ds), nil
}

// Reload re-reads a dataset source on the next request and drops the
// session results computed from it.
func (a *AnalysisService) Reload(ctx context.Context, kind domain.DatasetKind) error {
	if err := a.datasets.Reload(ctx, kind); err != nil {
		return err
	}
	a.sessions.Forget(kind)
	return nil
}

// Upload replaces the source of a dataset kind
func (a *AnalysisService) Upload(ctx context.Context, kind domain.DatasetKind, fileName string, r io.Reader) (*UploadResult, error) {
	res, err := a.datasets.Upload(ctx, kind, fileName, r)
	if err != nil {
		return nil, err
	}
	a.sessions.Forget(kind)
	return res, nil
}

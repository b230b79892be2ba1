package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"supplypulse/internal/analytics"
	"supplypulse/internal/config"
	"supplypulse/internal/dataprocessing"
	"supplypulse/internal/forecast"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// MaxTopN bounds the size of ranked lists a caller may request
const MaxTopN = 50

// DashboardService assembles dashboards from a loaded dataset
type DashboardService struct {
	cfg        config.AnalyticsConfig
	forecaster *forecast.Forecaster
	detector   *forecast.AnomalyDetector
	metrics    *infrastructure.PipelineMetrics
	logger     *slog.Logger
}

// NewDashboardService creates a dashboard service. metrics may be nil.
func NewDashboardService(cfg config.AnalyticsConfig, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &DashboardService{
		cfg: cfg,
		forecaster: forecast.NewForecaster(forecast.Options{
			TopN:         cfg.ForecastItems,
			Horizon:      cfg.ForecastHorizon,
			MinHistory:   cfg.MinHistory,
			SafetyMargin: cfg.SafetyMargin,
		}, logger),
		detector: forecast.NewAnomalyDetector(forecast.AnomalyOptions{
			Threshold:       cfg.ZThreshold,
			MinTransactions: cfg.MinCategorySize,
		}, logger),
		metrics: metrics,
		logger:  logger.With(slog.String("component", "dashboard_service")),
	}
}

// TopN returns the ranked list size for a request; zero means the configured default
func (s *DashboardService) TopN(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.TopN
	case requested > MaxTopN:
		return MaxTopN
	}
	return requested
}

// Build filters ds and computes every dashboard section that applies to its
// kind. The forecast and anomaly passes run concurrently; items they skip
// are listed in Dashboard.Skipped.
func (s *DashboardService) Build(ctx context.Context, ds *domain.Dataset, filter domain.Filter, topN int) (d *domain.Dashboard, err error) {
	start := time.Now()
	defer func() {
		infrastructure.RecordPipelineRun(ctx, s.metrics, string(ds.Kind()), time.Since(start), err)
	}()

	n := s.TopN(topN)
	filtered := dataprocessing.Apply(ds, filter)
	kind := ds.Kind()

	d = &domain.Dashboard{
		ID:          uuid.NewString(),
		Kind:        kind,
		Source:      ds.Source(),
		Fingerprint: ds.Fingerprint(),
		Filter:      filter,
		GeneratedAt: time.Now().UTC(),
		Warnings:    len(ds.Warnings()),
		Summary:     analytics.Summarize(filtered),
	}

	byCategory := []domain.Field{domain.FieldCategory}
	d.ByCategory = analytics.GroupSum(filtered, byCategory, domain.MeasureAmount)
	d.MonthlyTrend = analytics.MonthlyTrend(filtered, domain.MeasureAmount, s.cfg.Bucket())

	switch kind {
	case domain.KindConsumption:
		d.ByOrganization = analytics.GroupSum(filtered, []domain.Field{domain.FieldOrganization}, domain.MeasureQuantity)
		d.TopArticles = analytics.TopN(filtered, domain.FieldArticle, domain.MeasureAmount, n)
		d.DailyTrend = analytics.DailyTrend(filtered, domain.MeasureAmount)
		abc := analytics.ABCClassify(filtered, domain.FieldArticle, domain.MeasureAmount)
		d.ABC = &abc

	case domain.KindProcurement:
		d.TopArticles = analytics.TopN(filtered, domain.FieldArticle, domain.MeasureAmount, n)
		d.TopSuppliers = analytics.TopN(filtered, domain.FieldSupplier, domain.MeasureAmount, n)
		d.CategoryTrends = analytics.TrendByMonthAndField(filtered, domain.FieldCategory, domain.MeasureAmount)
		d.StatusCounts = analytics.CountBy(filtered, domain.FieldStatus)
		d.SupplierVolume = analytics.SupplierVolume(filtered, s.cfg.MinSupplierOrders, n)
		d.LeadTimes = analytics.DeliveryLeadTime(filtered)
		d.TopPair = analytics.TopPair(filtered, domain.FieldSupplier, domain.FieldCategory, domain.MeasureAmount)
		var skipped []domain.SkipEntry
		d.Reliability, skipped = analytics.SupplierReliabilityReport(filtered, s.cfg.MinSupplierOrders)
		d.Skipped = append(d.Skipped, skipped...)
		abc := analytics.ABCClassify(filtered, domain.FieldSupplier, domain.MeasureAmount)
		d.ABC = &abc

	case domain.KindEquipment:
		d.ByGroup = analytics.GroupSum(filtered, []domain.Field{domain.FieldGroup}, domain.MeasureAmount)
		d.TopArticles = analytics.TopN(filtered, domain.FieldEquipment, domain.MeasureAmount, n)
		d.DailyTrend = analytics.DailyTrend(filtered, domain.MeasureAmount)
		d.Projection = forecast.Project(filtered, domain.MeasureAmount, forecast.ProjectionOptions{
			Horizon:    s.cfg.ProjectionHorizon,
			Band:       s.cfg.ProjectionBand,
			MinHistory: s.cfg.MinHistory,
		})

	case domain.KindStock:
		d.TopArticles = analytics.TopN(filtered, domain.FieldArticle, domain.MeasureAmount, n)
		d.MonthlyTrend = analytics.PeriodTrend(filtered, domain.MeasureAmount)
		d.CategoryTrends = analytics.TrendByPeriodAndField(filtered, domain.FieldGroup, domain.MeasureAmount)
		abc := analytics.ABCClassify(filtered, domain.FieldArticle, domain.MeasureAmount)
		d.ABC = &abc
		turnover := analytics.StockTurnover(filtered, min(n, 5))
		d.Turnover = &turnover
		d.Alerts = analytics.StockAlerts(filtered, s.alertThresholds())
	}

	var (
		batch  domain.ForecastBatch
		report domain.AnomalyReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		batch, err = s.forecaster.Run(gctx, filtered)
		return err
	})
	g.Go(func() error {
		var err error
		report, err = s.detector.Detect(gctx, filtered)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Forecast = batch
	d.Anomalies = report
	d.Skipped = append(d.Skipped, batch.Skipped()...)
	d.Skipped = append(d.Skipped, report.Skipped()...)
	s.recordOutcomes(ctx, kind, batch, report)

	s.logger.InfoContext(ctx, "Dashboard built",
		slog.String("kind", string(kind)),
		slog.String("filter", filter.Key()),
		slog.Int("records", filtered.Len()),
		slog.Int("forecasts", len(batch.Recommendations)),
		slog.Int("anomalies", len(report.Anomalies)),
		slog.Int("skipped", len(d.Skipped)),
		slog.Duration("duration", time.Since(start)))
	return d, nil
}

func (s *DashboardService) alertThresholds() analytics.AlertThresholds {
	th := analytics.DefaultAlertThresholds()
	if s.cfg.LowStockQuantity > 0 {
		th.LowQuantity = s.cfg.LowStockQuantity
	}
	if s.cfg.HighCostAmount > 0 {
		th.HighAmount = s.cfg.HighCostAmount
	}
	if s.cfg.HighUnitPrice > 0 {
		th.HighUnitPrice = s.cfg.HighUnitPrice
	}
	if s.cfg.MaxAlerts > 0 {
		th.MaxAlerts = s.cfg.MaxAlerts
	}
	return th
}

func (s *DashboardService) recordOutcomes(ctx context.Context, kind domain.DatasetKind, batch domain.ForecastBatch, report domain.AnomalyReport) {
	for _, o := range batch.Outcomes {
		s.metrics.ForecastOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("dataset", string(kind)),
			attribute.String("status", string(o.Status))))
	}
	if len(report.Anomalies) > 0 {
		s.metrics.AnomaliesFlagged.Add(ctx, int64(len(report.Anomalies)), metric.WithAttributes(
			attribute.String("dataset", string(kind))))
	}
}

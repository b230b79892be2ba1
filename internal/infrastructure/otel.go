package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"supplypulse/internal/config"
	"supplypulse/pkg/contracts"
)

const (
	ServiceName = "supplypulse"
	MeterName   = "supplypulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig enables Prometheus metrics and leaves tracing off
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// OTelConfigFrom derives the OpenTelemetry setup from the telemetry section.
// Tracing is enabled whenever a trace exporter other than "none" is named.
func OTelConfigFrom(t config.TelemetryConfig) *OTelConfig {
	cfg := DefaultOTelConfig()
	if t.Environment != "" {
		cfg.Environment = t.Environment
	}
	if t.TraceExporter != "" && t.TraceExporter != "none" {
		cfg.TraceExporter = t.TraceExporter
		cfg.EnableTracing = true
	}
	if t.SampleRatio > 0 {
		cfg.SampleRatio = t.SampleRatio
	}
	return cfg
}

// InitializeOTel sets up the global tracer and meter providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if providers.Tracer == nil {
		providers.Tracer = otel.Tracer(MeterName)
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}
	if providers.Meter == nil {
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))
	return nil
}

// PipelineMetrics holds the application instruments
type PipelineMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	DatasetsLoaded   metric.Int64Counter
	DatasetRecords   metric.Int64Counter
	ParseWarnings    metric.Int64Counter
	CacheLookups     metric.Int64Counter
	PipelineDuration metric.Float64Histogram
	ForecastOutcomes metric.Int64Counter
	AnomaliesFlagged metric.Int64Counter
	ActiveSessions   metric.Int64UpDownCounter
	Exports          metric.Int64Counter

	SystemErrors metric.Int64Counter
}

// CreatePipelineMetrics registers every application instrument on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	updown := func(name, desc string) metric.Int64UpDownCounter {
		c, err := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
		)
		errs = append(errs, err)
		return h
	}

	m := &PipelineMetrics{
		HTTPRequestsTotal:   counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: seconds("http_request_duration_seconds", "HTTP request duration"),
		HTTPActiveRequests:  updown("http_active_requests", "Number of in-flight HTTP requests"),

		DatasetsLoaded:   counter("datasets_loaded_total", "Datasets parsed from their source"),
		DatasetRecords:   counter("dataset_records_total", "Records produced by ingestion"),
		ParseWarnings:    counter("parse_warnings_total", "Cells replaced with defaults during ingestion"),
		CacheLookups:     counter("cache_lookups_total", "Dataset and result cache lookups by outcome"),
		PipelineDuration: seconds("pipeline_duration_seconds", "Time to build a dashboard"),
		ForecastOutcomes: counter("forecast_outcomes_total", "Forecast items by status"),
		AnomaliesFlagged: counter("anomalies_flagged_total", "Transactions flagged as anomalies"),
		ActiveSessions:   updown("active_sessions", "Open analysis sessions"),
		Exports:          counter("exports_total", "Report exports by format"),

		SystemErrors: counter("system_errors_total", "Unexpected internal errors"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// NoopPipelineMetrics returns instruments that record nothing
func NoopPipelineMetrics() *PipelineMetrics {
	m, _ := CreatePipelineMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown errors: %w", err)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the span trace ID for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordPipelineRun records one dashboard build
func RecordPipelineRun(ctx context.Context, m *PipelineMetrics, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.SystemErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", "pipeline"),
			attribute.String("error.type", fmt.Sprintf("%T", err))))
	}
	m.PipelineDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("dataset", kind),
		attribute.String("status", status)))
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(ctx context.Context, m *PipelineMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("outcome", outcome)))
}

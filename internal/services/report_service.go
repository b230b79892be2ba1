package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"supplypulse/internal/dataprocessing"
	"supplypulse/internal/exporter"
	"supplypulse/pkg/contracts/domain"
)

// ReportRequest is a one-shot report over a local workbook or archive
type ReportRequest struct {
	Kind    domain.DatasetKind
	Input   string
	OutDir  string
	Formats []exporter.Format
	Filter  domain.Filter
	TopN    int
}

// ReportResult lists what a build produced
type ReportResult struct {
	Dashboard *domain.Dashboard
	Records   int
	Files     []string
	Duration  time.Duration
}

// Inspection summarizes a workbook without building a dashboard
type Inspection struct {
	Kind        domain.DatasetKind     `json:"kind"`
	Source      string                 `json:"source"`
	Fingerprint string                 `json:"fingerprint"`
	Records     int                    `json:"records"`
	Warnings    []domain.ParseWarning  `json:"warnings"`
	Choices     dataprocessing.Choices `json:"choices"`
}

// ReportService builds report files outside the HTTP API
type ReportService struct {
	datasets   *DatasetService
	dashboards *DashboardService
	exporter   *exporter.Exporter
	logger     *slog.Logger
}

// NewReportService creates a report service
func NewReportService(datasets *DatasetService, dashboards *DashboardService, exp *exporter.Exporter, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		datasets:   datasets,
		dashboards: dashboards,
		exporter:   exp,
		logger:     logger.With(slog.String("component", "report_service")),
	}
}

// Build parses the input, assembles the dashboard and writes every format.
// An empty OutDir writes into the reports directory.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	if len(req.Formats) == 0 {
		return nil, fmt.Errorf("%w: no output format requested", ErrInvalidInput)
	}
	start := time.Now()

	ds, err := s.datasets.LoadPath(ctx, req.Kind, req.Input)
	if err != nil {
		return nil, err
	}
	d, err := s.dashboards.Build(ctx, ds, req.Filter, req.TopN)
	if err != nil {
		return nil, err
	}
	records := dataprocessing.Apply(ds, req.Filter)

	files, err := s.exporter.Export(ctx, req.OutDir, exporter.FileName(d), d, records, req.Formats)
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}

	res := &ReportResult{
		Dashboard: d,
		Records:   records.Len(),
		Files:     files,
		Duration:  time.Since(start),
	}
	s.logger.InfoContext(ctx, "Report built",
		slog.String("kind", string(req.Kind)),
		slog.String("input", req.Input),
		slog.Int("records", res.Records),
		slog.Int("files", len(files)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// Inspect checks the input against the schema of kind and reports the
// recovered warnings and the filter values it offers.
func (s *ReportService) Inspect(ctx context.Context, kind domain.DatasetKind, input string) (*Inspection, error) {
	ds, err := s.datasets.LoadPath(ctx, kind, input)
	if err != nil {
		return nil, err
	}
	warnings := ds.Warnings()
	if warnings == nil {
		warnings = []domain.ParseWarning{}
	}
	return &Inspection{
		Kind:        kind,
		Source:      ds.Source(),
		Fingerprint: ds.Fingerprint(),
		Records:     ds.Len(),
		Warnings:    warnings,
		Choices:     dataprocessing.FilterChoices(ds),
	}, nil
}

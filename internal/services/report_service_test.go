package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/exporter"
	"supplypulse/pkg/contracts/domain"
)

func newTestReports(t *testing.T, input string) *ReportService {
	t.Helper()
	cfg, paths := newTestConfig(t, input)
	return NewReportService(
		NewDatasetService(cfg, paths, nil, nil, nil),
		NewDashboardService(cfg.Analytics, nil, nil),
		exporter.NewExporter(paths, nil),
		nil,
	)
}

func TestReportBuild(t *testing.T) {
	input := writeConsumption(t, 1000)
	svc := newTestReports(t, input)
	out := t.TempDir()

	res, err := svc.Build(context.Background(), ReportRequest{
		Kind:    domain.KindConsumption,
		Input:   input,
		OutDir:  out,
		Formats: []exporter.Format{exporter.FormatXLSX, exporter.FormatHTML, exporter.FormatCSV},
		Filter:  domain.Filter{DateFrom: day(2024, time.March, 1)},
	})
	require.NoError(t, err)

	// March to June: eight filter purchases and the tyre
	assert.Equal(t, 9, res.Records)
	assert.Equal(t, domain.KindConsumption, res.Dashboard.Kind)

	base := exporter.FileName(res.Dashboard)
	assert.Contains(t, res.Files, filepath.Join(out, base+".xlsx"))
	assert.Contains(t, res.Files, filepath.Join(out, base+".html"))
	assert.Contains(t, res.Files, filepath.Join(out, base+"_records.csv"))
	for _, f := range res.Files {
		info, err := os.Stat(f)
		require.NoError(t, err, f)
		assert.Positive(t, info.Size(), f)
	}
}

func TestReportBuildErrors(t *testing.T) {
	input := writeConsumption(t, 10)
	svc := newTestReports(t, input)
	ctx := context.Background()

	_, err := svc.Build(ctx, ReportRequest{Kind: domain.KindConsumption, Input: input})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Build(ctx, ReportRequest{
		Kind:    domain.KindStock,
		Input:   input,
		Formats: []exporter.Format{exporter.FormatHTML},
	})
	var schemaErr *domain.SchemaError
	assert.True(t, errors.As(err, &schemaErr), "got %v", err)

	_, err = svc.Build(ctx, ReportRequest{
		Kind:    "payroll",
		Input:   input,
		Formats: []exporter.Format{exporter.FormatHTML},
	})
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestReportInspect(t *testing.T) {
	input := writeConsumption(t, 10)
	svc := newTestReports(t, input)

	in, err := svc.Inspect(context.Background(), domain.KindConsumption, input)
	require.NoError(t, err)

	assert.Equal(t, domain.KindConsumption, in.Kind)
	assert.Equal(t, 13, in.Records)
	assert.NotEmpty(t, in.Fingerprint)
	assert.NotNil(t, in.Warnings)
	assert.Equal(t, []string{"ORG1", "ORG2"}, in.Choices.Organizations)
	assert.Equal(t, []string{"Filtres", "Pneus"}, in.Choices.Categories)
}

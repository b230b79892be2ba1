package services

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/config"
	"supplypulse/pkg/contracts/domain"
)

func newTestAnalysis(t *testing.T, consumption string) *AnalysisService {
	t.Helper()
	cfg, paths := newTestConfig(t, consumption)
	return NewAnalysisService(
		NewDatasetService(cfg, paths, nil, nil, nil),
		NewDashboardService(cfg.Analytics, nil, nil),
		NewSessionStore(cfg.Sessions, nil, nil),
		nil, nil,
	)
}

func TestAnalysisDashboardCachedPerSession(t *testing.T) {
	svc := newTestAnalysis(t, writeConsumption(t, 1000))
	ctx := context.Background()

	a, err := svc.Sessions().Create(ctx)
	require.NoError(t, err)
	b, err := svc.Sessions().Create(ctx)
	require.NoError(t, err)

	first, cached, err := svc.Dashboard(ctx, a.ID, domain.KindConsumption, domain.Filter{}, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 13, first.Records.Len())

	again, cached, err := svc.Dashboard(ctx, a.ID, domain.KindConsumption, domain.Filter{}, 10)
	require.NoError(t, err)
	assert.True(t, cached, "topN 10 is the default and shares the key")
	assert.Same(t, first, again)

	other, cached, err := svc.Dashboard(ctx, b.ID, domain.KindConsumption, domain.Filter{}, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotSame(t, first, other)
	assert.Equal(t, first.Dashboard.Fingerprint, other.Dashboard.Fingerprint)

	filtered, cached, err := svc.Dashboard(ctx, a.ID, domain.KindConsumption, domain.Filter{Organization: "ORG2"}, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, filtered.Records.Len())
	assert.Equal(t, 2, a.Len())
}

func TestAnalysisDashboardErrors(t *testing.T) {
	svc := newTestAnalysis(t, writeConsumption(t, 10))
	ctx := context.Background()

	_, _, err := svc.Dashboard(ctx, "missing", domain.KindConsumption, domain.Filter{}, 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s, err := svc.Sessions().Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.Dashboard(ctx, s.ID, domain.KindStock, domain.Filter{}, 0)
	assert.ErrorIs(t, err, ErrSourceNotConfigured)
	assert.Equal(t, 0, s.Len())
}

func TestAnalysisReloadForgetsResults(t *testing.T) {
	svc := newTestAnalysis(t, writeConsumption(t, 1000))
	ctx := context.Background()

	s, err := svc.Sessions().Create(ctx)
	require.NoError(t, err)
	_, _, err = svc.Dashboard(ctx, s.ID, domain.KindConsumption, domain.Filter{}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	require.NoError(t, svc.Reload(ctx, domain.KindConsumption))
	assert.Equal(t, 0, s.Len())

	_, cached, err := svc.Dashboard(ctx, s.ID, domain.KindConsumption, domain.Filter{}, 0)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestAnalysisUploadReplacesResults(t *testing.T) {
	svc := newTestAnalysis(t, writeConsumption(t, 10))
	ctx := context.Background()

	s, err := svc.Sessions().Create(ctx)
	require.NoError(t, err)
	before, _, err := svc.Dashboard(ctx, s.ID, domain.KindConsumption, domain.Filter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, before.Dashboard.Anomalies.Anomalies)

	content, err := os.ReadFile(writeConsumption(t, 1000))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, domain.KindConsumption, "mars.xlsx", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	after, cached, err := svc.Dashboard(ctx, s.ID, domain.KindConsumption, domain.Filter{}, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, after.Dashboard.Anomalies.Anomalies, 1)
}

func TestAnalysisChoices(t *testing.T) {
	svc := newTestAnalysis(t, writeConsumption(t, 10))

	choices, err := svc.Choices(context.Background(), domain.KindConsumption)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORG1", "ORG2"}, choices.Organizations)
	assert.Equal(t, []string{"Filtres", "Pneus"}, choices.Categories)

	_, err = svc.Choices(context.Background(), domain.DatasetKind("payroll"))
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestAnalysisAccessors(t *testing.T) {
	cfg, paths := newTestConfig(t, "")
	datasets := NewDatasetService(cfg, paths, nil, nil, nil)
	sessions := NewSessionStore(config.SessionConfig{}, nil, nil)
	svc := NewAnalysisService(datasets, NewDashboardService(cfg.Analytics, nil, nil), sessions, nil, nil)

	assert.Same(t, datasets, svc.Datasets())
	assert.Same(t, sessions, svc.Sessions())
}

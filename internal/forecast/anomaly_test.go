package forecast

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/pkg/contracts/domain"
)

func categoryRecords(category string, amounts ...float64) []domain.Record {
	records := make([]domain.Record, len(amounts))
	for i, a := range amounts {
		records[i] = domain.Record{Row: i + 2, Category: category, Article: "item", Amount: a}
	}
	return records
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDetectSkipsSmallCategories(t *testing.T) {
	small := categoryRecords("Small", 10, 11, 9, 10, 12, 8, 10, 5000)
	steady := categoryRecords("Steady", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	ds := newDataset(domain.KindConsumption, small, steady)

	report, err := NewAnomalyDetector(DefaultAnomalyOptions(), nil).Detect(context.Background(), ds)
	require.NoError(t, err)

	assert.Empty(t, report.Anomalies)
	require.Len(t, report.Categories, 2)

	assert.Equal(t, domain.CategoryEvaluation{
		Category:     "Small",
		Transactions: 8,
		Status:       domain.NotEvaluated,
		Reason:       "insufficient data: 8 transactions",
	}, report.Categories[0])

	assert.Equal(t, domain.CategoryEvaluation{
		Category:     "Steady",
		Transactions: 12,
		Status:       domain.Evaluated,
	}, report.Categories[1])

	skipped := report.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "Small", skipped[0].Item)
	assert.Equal(t, domain.StageAnomaly, skipped[0].Stage)
}

func TestDetectFlagsOutliers(t *testing.T) {
	amounts := append(repeat(100, 11), 10000)
	ds := newDataset(domain.KindConsumption,
		categoryRecords("Pieces", amounts...),
		categoryRecords("Flat", repeat(50, 15)...),
	)

	report, err := NewAnomalyDetector(DefaultAnomalyOptions(), nil).Detect(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, report.Anomalies, 1)
	a := report.Anomalies[0]
	assert.Equal(t, 13, a.Row)
	assert.Equal(t, 10000.0, a.Amount)
	assert.Equal(t, "Pieces", a.Category)
	// population z of a single outlier among n values is sqrt(n-1)
	assert.InDelta(t, math.Sqrt(11), a.ZScore, 1e-9)
	assert.InDelta(t, 925.0, a.CategoryMean, 1e-9)

	assert.Equal(t, domain.Evaluated, report.Categories[0].Status)
	assert.Equal(t, 1, report.Categories[0].Flagged)

	assert.Equal(t, domain.NotEvaluated, report.Categories[1].Status)
	assert.Equal(t, "zero variance", report.Categories[1].Reason)
}

func TestDetectThresholdProperty(t *testing.T) {
	amounts := []float64{5, 7, 6, 5, 8, 6, 7, 5, 6, 7, 6, 5, 7, 400, 6, -300, 5}
	ds := newDataset(domain.KindConsumption, categoryRecords("Mixed", amounts...))

	report, err := NewAnomalyDetector(DefaultAnomalyOptions(), nil).Detect(context.Background(), ds)
	require.NoError(t, err)

	flagged := make(map[int]bool)
	for _, a := range report.Anomalies {
		assert.Greater(t, math.Abs(a.ZScore), 3.0)
		flagged[a.Row] = true
	}

	mean, std := 0.0, 0.0
	for _, v := range amounts {
		mean += v
	}
	mean /= float64(len(amounts))
	for _, v := range amounts {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(amounts)))

	for i, v := range amounts {
		z := (v - mean) / std
		assert.Equal(t, math.Abs(z) > 3, flagged[i+2], "row %d z=%.3f", i+2, z)
	}
}

func TestDetectFailedCategory(t *testing.T) {
	amounts := append(repeat(1, 11), math.Inf(1))
	ds := newDataset(domain.KindConsumption,
		categoryRecords("Broken", amounts...),
		categoryRecords("Pieces", append(repeat(100, 11), 10000)...),
	)

	report, err := NewAnomalyDetector(DefaultAnomalyOptions(), nil).Detect(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, domain.Failed, report.Categories[0].Status)
	assert.Equal(t, domain.Evaluated, report.Categories[1].Status)
	assert.Len(t, report.Anomalies, 1)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := newDataset(domain.KindConsumption, categoryRecords("Pieces", 1, 2))
	_, err := NewAnomalyDetector(DefaultAnomalyOptions(), nil).Detect(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}

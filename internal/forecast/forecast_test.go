package forecast

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplypulse/internal/shared/testutil"
	"supplypulse/pkg/contracts/domain"
)

func month(y int, m time.Month) civil.Date {
	return civil.Date{Year: y, Month: m, Day: 1}
}

// monthlyRecords builds one record per value, one month apart from start
func monthlyRecords(article string, start civil.Date, quantities ...float64) []domain.Record {
	records := make([]domain.Record, len(quantities))
	for i, q := range quantities {
		records[i] = domain.Record{
			Date:     domain.AddMonths(start, i).AddDays(9),
			Article:  article,
			Category: "Pieces",
			Quantity: q,
			Amount:   q * 10,
		}
	}
	return records
}

func newDataset(kind domain.DatasetKind, groups ...[]domain.Record) *domain.Dataset {
	var records []domain.Record
	for _, g := range groups {
		records = append(records, g...)
	}
	return domain.NewDataset(kind, "test", "fp", records, nil)
}

func TestFitARIMARecoversAutoregression(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const phi = 0.6

	y := []float64{100}
	var w float64
	for i := 0; i < 400; i++ {
		w = phi*w + rng.NormFloat64()
		y = append(y, y[len(y)-1]+w)
	}

	fit, err := FitARIMA(y)
	require.NoError(t, err)
	assert.InDelta(t, phi, fit.Phi, 0.2)
	assert.Less(t, math.Abs(fit.Theta), 0.3)
	assert.Greater(t, fit.Sigma2, 0.0)
}

func TestFitARIMAErrors(t *testing.T) {
	_, err := FitARIMA([]float64{1, 2})
	assert.Error(t, err)

	_, err = FitARIMA([]float64{10, 20, 30, 40})
	assert.ErrorIs(t, err, ErrDegenerateSeries)

	_, err = FitARIMA([]float64{5, 5, 5})
	assert.ErrorIs(t, err, ErrDegenerateSeries)

	_, err = FitARIMA([]float64{1, math.NaN(), 3})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestARIMAFitForecast(t *testing.T) {
	fit := &ARIMAFit{Phi: 0.5, Theta: 0.2, lastLevel: 10, lastDiff: 4, lastResidual: 5}

	got, err := fit.Forecast(3)
	require.NoError(t, err)
	// first step: 0.5*4 + 0.2*5 = 3, then 1.5, then 0.75
	assert.InDeltaSlice(t, []float64{13, 14.5, 15.25}, got, 1e-9)
}

func TestForecasterRun(t *testing.T) {
	start := month(2023, time.January)
	ds := newDataset(domain.KindConsumption,
		monthlyRecords("Filtre huile", start, 40, 55, 38, 61, 47, 52, 36, 58, 44, 60),
		monthlyRecords("Joint", start, 500, 700),
		monthlyRecords("Courroie", start, 10, 20, 30),
		monthlyRecords("Vis", start, 1, 2, 1, 3),
	)

	logger, handler := testutil.NewTestLogger(t)
	f := NewForecaster(DefaultOptions(), logger)
	batch, err := f.Run(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, batch.Outcomes, 4)
	byItem := make(map[string]domain.ForecastOutcome)
	for _, o := range batch.Outcomes {
		byItem[o.Item] = o
	}
	// ranked by summed quantity
	assert.Equal(t, "Joint", batch.Outcomes[0].Item)
	assert.Equal(t, "Filtre huile", batch.Outcomes[1].Item)

	t.Run("insufficient history", func(t *testing.T) {
		o := byItem["Joint"]
		assert.Equal(t, domain.ForecastInsufficientData, o.Status)
		assert.Equal(t, "insufficient data: 2 records", o.Reason)
		assert.Equal(t, 2, o.Observations)
		assert.Nil(t, o.Series)
	})

	t.Run("degenerate series", func(t *testing.T) {
		o := byItem["Courroie"]
		assert.Equal(t, domain.ForecastModelFailure, o.Status)
		assert.Equal(t, "model failure: differenced series is constant", o.Reason)
	})

	t.Run("successful forecast", func(t *testing.T) {
		o := byItem["Filtre huile"]
		require.True(t, o.Succeeded())
		s := o.Series
		assert.Equal(t, domain.MeasureQuantity, s.Measure)
		assert.Len(t, s.Historical, 10)
		require.Len(t, s.Forecast, 6)
		assert.Equal(t, month(2023, time.November), s.Forecast[0].Period)
		assert.Equal(t, month(2024, time.April), s.Forecast[5].Period)
		for _, p := range s.Forecast {
			assert.GreaterOrEqual(t, p.Value, 0.0)
			assert.Equal(t, domain.SeriesForecast, p.Kind)
		}
		assert.Equal(t, domain.SeriesHistorical, s.Historical[0].Kind)
		assert.Less(t, math.Abs(s.Phi), 1.0)
		assert.Less(t, math.Abs(s.Theta), 1.0)
	})

	// the skipped item does not appear among the series
	for _, s := range batch.Series() {
		assert.NotEqual(t, "Joint", s.Item)
	}
	skipped := batch.Skipped()
	require.GreaterOrEqual(t, len(skipped), 2)
	assert.Equal(t, domain.SkipEntry{Stage: domain.StageForecast, Item: "Joint", Reason: "insufficient data: 2 records"}, skipped[0])

	assert.Len(t, batch.Recommendations, len(batch.Series()))
	testutil.AssertLogContains(t, handler, slog.LevelDebug, "Forecast skipped")
}

func TestForecasterNonNegative(t *testing.T) {
	start := month(2023, time.June)
	ds := newDataset(domain.KindConsumption,
		monthlyRecords("Huile", start, 120, 80, 45, 20, 6, 2),
	)

	batch, err := NewForecaster(DefaultOptions(), nil).Run(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 1)

	for _, s := range batch.Series() {
		for _, p := range s.Forecast {
			assert.GreaterOrEqual(t, p.Value, 0.0)
		}
	}
	for _, r := range batch.Recommendations {
		assert.GreaterOrEqual(t, r.SuggestedStock, int64(0))
	}
}

func TestForecasterEquipmentUsesAmount(t *testing.T) {
	start := month(2023, time.January)
	records := monthlyRecords("CAT 320D", start, 3, 1, 4, 1, 5, 9)
	ds := newDataset(domain.KindEquipment, records)

	batch, err := NewForecaster(DefaultOptions(), nil).Run(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 1)
	require.True(t, batch.Outcomes[0].Succeeded())
	assert.Equal(t, domain.MeasureAmount, batch.Outcomes[0].Series.Measure)
	assert.Equal(t, 30.0, batch.Outcomes[0].Series.Historical[0].Value)
}

func TestForecasterTopNAndCancel(t *testing.T) {
	start := month(2023, time.January)
	var groups [][]domain.Record
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		groups = append(groups, monthlyRecords(name, start, float64(100-i), 1))
	}
	ds := newDataset(domain.KindConsumption, groups...)

	batch, err := NewForecaster(DefaultOptions(), nil).Run(context.Background(), ds)
	require.NoError(t, err)
	assert.Len(t, batch.Outcomes, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewForecaster(DefaultOptions(), nil).Run(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)

	empty, err := NewForecaster(DefaultOptions(), nil).Run(context.Background(), newDataset(domain.KindConsumption))
	require.NoError(t, err)
	assert.Empty(t, empty.Outcomes)
}

func TestRecommend(t *testing.T) {
	series := &domain.ForecastSeries{
		Item: "Filtre",
		Forecast: []domain.SeriesPoint{
			{Value: 10.4}, {Value: 20.3}, {Value: 0}, {Value: 15.5}, {Value: 30}, {Value: 12.1},
		},
	}
	rec := Recommend(series, 0.10)
	assert.InDelta(t, 88.3, rec.ForecastTotal, 1e-9)
	// floor(88.3 * 1.1) = floor(97.13)
	assert.Equal(t, int64(97), rec.SuggestedStock)
	assert.Equal(t, "Filtre", rec.Item)
}

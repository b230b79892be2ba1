package forecast

import (
	"context"
	"log/slog"
	"math"

	"supplypulse/internal/analytics"
	"supplypulse/pkg/contracts/domain"
)

// Options configures the forecast pass
type Options struct {
	// TopN is how many articles are forecast
	TopN int
	// Horizon is the number of months forecast past the last observed month
	Horizon int
	// MinHistory is the minimum number of monthly observations per article
	MinHistory int
	// SafetyMargin is added on top of the forecast total for recommendations
	SafetyMargin float64
	// Measure overrides the per-kind default
	Measure domain.Measure
}

// DefaultOptions returns the standard forecast settings
func DefaultOptions() Options {
	return Options{
		TopN:         5,
		Horizon:      6,
		MinHistory:   3,
		SafetyMargin: 0.10,
	}
}

// MeasureFor returns the measure forecast for a dataset kind. Equipment
// datasets track spend; the others track consumed quantity.
func MeasureFor(kind domain.DatasetKind) domain.Measure {
	if kind == domain.KindEquipment {
		return domain.MeasureAmount
	}
	return domain.MeasureQuantity
}

// Forecaster fits one ARIMA(1,1,1) model per top article and projects it
// forward. Items are independent: one failing never stops the others.
type Forecaster struct {
	opts   Options
	logger *slog.Logger
}

// NewForecaster creates a forecaster. Unset TopN, Horizon and MinHistory
// take their defaults; MinHistory is never below 3.
func NewForecaster(opts Options, logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.TopN <= 0 {
		opts.TopN = def.TopN
	}
	if opts.Horizon <= 0 {
		opts.Horizon = def.Horizon
	}
	if opts.MinHistory < 3 {
		opts.MinHistory = def.MinHistory
	}
	if opts.SafetyMargin < 0 {
		opts.SafetyMargin = def.SafetyMargin
	}
	return &Forecaster{
		opts:   opts,
		logger: logger.With(slog.String("component", "forecaster")),
	}
}

func (f *Forecaster) measure(ds *domain.Dataset) domain.Measure {
	if f.opts.Measure != "" {
		return f.opts.Measure
	}
	return MeasureFor(ds.Kind())
}

// Run forecasts the top articles of ds by summed measure. It only returns
// an error when ctx is cancelled; per-item problems become outcomes.
func (f *Forecaster) Run(ctx context.Context, ds *domain.Dataset) (domain.ForecastBatch, error) {
	var batch domain.ForecastBatch
	if ds.Len() == 0 {
		return batch, nil
	}

	measure := f.measure(ds)
	top := analytics.TopN(ds, domain.FieldArticle, measure, f.opts.TopN)

	for _, g := range top {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		outcome := f.ForecastItem(ds, g.Label, measure)
		batch.Outcomes = append(batch.Outcomes, outcome)
		if outcome.Succeeded() {
			batch.Recommendations = append(batch.Recommendations, Recommend(outcome.Series, f.opts.SafetyMargin))
		}
	}

	f.logger.InfoContext(ctx, "Forecast batch completed",
		slog.String("kind", string(ds.Kind())),
		slog.String("measure", string(measure)),
		slog.Int("items", len(batch.Outcomes)),
		slog.Int("succeeded", len(batch.Recommendations)))
	return batch, nil
}

// ForecastItem forecasts one article's monthly series
func (f *Forecaster) ForecastItem(ds *domain.Dataset, item string, measure domain.Measure) domain.ForecastOutcome {
	history := monthlyHistory(ds, item, measure)
	outcome := domain.ForecastOutcome{Item: item, Observations: len(history)}

	if len(history) < f.opts.MinHistory {
		err := &domain.InsufficientDataError{Item: item, Records: len(history)}
		f.logger.Debug("Forecast skipped",
			slog.String("item", item),
			slog.String("reason", err.Error()))
		outcome.Status = domain.ForecastInsufficientData
		outcome.Reason = err.Error()
		return outcome
	}

	series, err := fitSeries(item, measure, history, f.opts.Horizon)
	if err != nil {
		failure := &domain.ComputationFailure{Item: item, Cause: err}
		f.logger.Debug("Forecast model failed",
			slog.String("item", item),
			slog.String("error", failure.Error()))
		outcome.Status = domain.ForecastModelFailure
		outcome.Reason = failure.Error()
		return outcome
	}

	outcome.Status = domain.ForecastSucceeded
	outcome.Series = series
	return outcome
}

func monthlyHistory(ds *domain.Dataset, item string, measure domain.Measure) []domain.TrendPoint {
	var records []domain.Record
	for _, r := range ds.All() {
		if r.Article == item {
			records = append(records, r)
		}
	}
	return analytics.MonthlyTrend(ds.Derive(records), measure, domain.BucketYearMonth)
}

func fitSeries(item string, measure domain.Measure, history []domain.TrendPoint, horizon int) (*domain.ForecastSeries, error) {
	values := make([]float64, len(history))
	historical := make([]domain.SeriesPoint, len(history))
	for i, p := range history {
		values[i] = p.Value
		historical[i] = domain.SeriesPoint{Period: p.Period, Value: p.Value, Kind: domain.SeriesHistorical}
	}

	fit, err := FitARIMA(values)
	if err != nil {
		return nil, err
	}
	predicted, err := fit.Forecast(horizon)
	if err != nil {
		return nil, err
	}

	last := history[len(history)-1].Period
	forecast := make([]domain.SeriesPoint, horizon)
	for i, v := range predicted {
		forecast[i] = domain.SeriesPoint{
			Period: domain.AddMonths(last, i+1),
			Value:  math.Max(0, v),
			Kind:   domain.SeriesForecast,
		}
	}

	return &domain.ForecastSeries{
		Item:       item,
		Measure:    measure,
		Historical: historical,
		Forecast:   forecast,
		Phi:        fit.Phi,
		Theta:      fit.Theta,
		Sigma2:     fit.Sigma2,
	}, nil
}

// Recommend turns a forecast into a suggested stock level:
// floor(total x (1 + margin)).
func Recommend(series *domain.ForecastSeries, margin float64) domain.Recommendation {
	total := series.ForecastTotal()
	return domain.Recommendation{
		Item:           series.Item,
		ForecastTotal:  total,
		SafetyMargin:   margin,
		SuggestedStock: int64(math.Floor(total * (1 + margin))),
	}
}

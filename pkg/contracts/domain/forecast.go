package domain

import (
	"cloud.google.com/go/civil"
)

// SeriesKind tags a point as observed or predicted
type SeriesKind string

const (
	SeriesHistorical SeriesKind = "Historical"
	SeriesForecast   SeriesKind = "Forecast"
)

// SeriesPoint is one monthly value
type SeriesPoint struct {
	Period civil.Date `json:"period"`
	Value  float64    `json:"value"`
	Kind   SeriesKind `json:"kind"`
}

// ForecastSeries holds the monthly history and forecast of one item.
// Forecast values are never negative.
type ForecastSeries struct {
	Item       string        `json:"item"`
	Measure    Measure       `json:"measure"`
	Historical []SeriesPoint `json:"historical"`
	Forecast   []SeriesPoint `json:"forecast"`
	Phi        float64       `json:"phi"`
	Theta      float64       `json:"theta"`
	Sigma2     float64       `json:"sigma2"`
}

// ForecastTotal sums the forecast values
func (s *ForecastSeries) ForecastTotal() float64 {
	var total float64
	for _, p := range s.Forecast {
		total += p.Value
	}
	return total
}

// ForecastStatus is the outcome class of one item's forecast
type ForecastStatus string

const (
	ForecastSucceeded        ForecastStatus = "succeeded"
	ForecastInsufficientData ForecastStatus = "insufficient_data"
	ForecastModelFailure     ForecastStatus = "model_failure"
)

// ForecastOutcome carries either a series or the reason the item was skipped
type ForecastOutcome struct {
	Item         string          `json:"item"`
	Status       ForecastStatus  `json:"status"`
	Observations int             `json:"observations"`
	Series       *ForecastSeries `json:"series,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Succeeded reports whether a series was produced
func (o ForecastOutcome) Succeeded() bool {
	return o.Status == ForecastSucceeded && o.Series != nil
}

// Recommendation is the suggested stock for one forecast item
type Recommendation struct {
	Item           string  `json:"item"`
	ForecastTotal  float64 `json:"forecast_total"`
	SafetyMargin   float64 `json:"safety_margin"`
	SuggestedStock int64   `json:"suggested_stock"`
}

// ForecastBatch is the result of forecasting a set of items
type ForecastBatch struct {
	Outcomes        []ForecastOutcome `json:"outcomes"`
	Recommendations []Recommendation  `json:"recommendations"`
}

// Series returns the successful series in item order
func (b ForecastBatch) Series() []*ForecastSeries {
	var out []*ForecastSeries
	for _, o := range b.Outcomes {
		if o.Succeeded() {
			out = append(out, o.Series)
		}
	}
	return out
}

// Skipped returns skip entries for every item without a series
func (b ForecastBatch) Skipped() []SkipEntry {
	var out []SkipEntry
	for _, o := range b.Outcomes {
		if !o.Succeeded() {
			out = append(out, SkipEntry{Stage: StageForecast, Item: o.Item, Reason: o.Reason})
		}
	}
	return out
}

// ProjectionPoint is one month of a linear projection with its band
type ProjectionPoint struct {
	Period civil.Date `json:"period"`
	Value  float64    `json:"value"`
	Lower  float64    `json:"lower"`
	Upper  float64    `json:"upper"`
}

// RecentEstimate summarizes the last observed monthly totals
type RecentEstimate struct {
	Months int     `json:"months"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Projection is a least-squares trend extended past the last observed month
type Projection struct {
	Measure    Measure           `json:"measure"`
	Slope      float64           `json:"slope"`
	Intercept  float64           `json:"intercept"`
	RSquared   float64           `json:"r_squared"`
	Historical []TrendPoint      `json:"historical"`
	Points     []ProjectionPoint `json:"points"`
	Recent     RecentEstimate    `json:"recent"`
}

// AnomalyRecord is a transaction whose amount is an outlier within its category
type AnomalyRecord struct {
	Row            int        `json:"row"`
	Date           civil.Date `json:"date"`
	Organization   string     `json:"organization"`
	Article        string     `json:"article"`
	Supplier       string     `json:"supplier"`
	Equipment      string     `json:"equipment"`
	Category       string     `json:"category"`
	Amount         float64    `json:"amount"`
	ZScore         float64    `json:"z_score"`
	CategoryMean   float64    `json:"category_mean"`
	CategoryStdDev float64    `json:"category_std_dev"`
}

// EvaluationStatus distinguishes categories that were scored from those skipped
type EvaluationStatus string

const (
	Evaluated    EvaluationStatus = "evaluated"
	NotEvaluated EvaluationStatus = "not_evaluated"
	Failed       EvaluationStatus = "failed"
)

// CategoryEvaluation reports how one category was handled by anomaly detection
type CategoryEvaluation struct {
	Category     string           `json:"category"`
	Transactions int              `json:"transactions"`
	Status       EvaluationStatus `json:"status"`
	Flagged      int              `json:"flagged"`
	Reason       string           `json:"reason,omitempty"`
}

// AnomalyReport is the outcome of an anomaly scan
type AnomalyReport struct {
	Threshold  float64              `json:"threshold"`
	Anomalies  []AnomalyRecord      `json:"anomalies"`
	Categories []CategoryEvaluation `json:"categories"`
}

// Skipped returns skip entries for categories that were not scored
func (r AnomalyReport) Skipped() []SkipEntry {
	var out []SkipEntry
	for _, c := range r.Categories {
		if c.Status != Evaluated {
			out = append(out, SkipEntry{Stage: StageAnomaly, Item: c.Category, Reason: c.Reason})
		}
	}
	return out
}

// SkipStage names the pipeline stage that skipped an item
type SkipStage string

const (
	StageForecast    SkipStage = "forecast"
	StageAnomaly     SkipStage = "anomaly"
	StageReliability SkipStage = "reliability"
)

// SkipEntry is one "skipped: reason" line shown next to computed results
type SkipEntry struct {
	Stage  SkipStage `json:"stage"`
	Item   string    `json:"item"`
	Reason string    `json:"reason"`
}

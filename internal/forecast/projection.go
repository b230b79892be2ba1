package forecast

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"supplypulse/internal/analytics"
	"supplypulse/pkg/contracts/domain"
)

// ProjectionOptions configures the linear spend projection
type ProjectionOptions struct {
	Horizon      int
	Band         float64
	MinHistory   int
	// RecentMonths is the window of the mean/min/max estimate
	RecentMonths int
}

// DefaultProjectionOptions projects three months with a 30% band
func DefaultProjectionOptions() ProjectionOptions {
	return ProjectionOptions{Horizon: 3, Band: 0.30, MinHistory: 3, RecentMonths: 3}
}

// Project fits a least-squares line through the monthly totals of a
// measure and extends it past the last observed month. Returns nil when
// there are fewer than MinHistory months. Projected values are clamped at
// zero. The result also carries a mean/min/max estimate over the last
// RecentMonths totals.
func Project(ds *domain.Dataset, value domain.Measure, opts ProjectionOptions) *domain.Projection {
	def := DefaultProjectionOptions()
	if opts.Horizon <= 0 {
		opts.Horizon = def.Horizon
	}
	if opts.MinHistory < 2 {
		opts.MinHistory = def.MinHistory
	}
	if opts.Band < 0 {
		opts.Band = def.Band
	}
	if opts.RecentMonths <= 0 {
		opts.RecentMonths = def.RecentMonths
	}

	history := analytics.MonthlyTrend(ds, value, domain.BucketYearMonth)
	if len(history) < opts.MinHistory {
		return nil
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, p := range history {
		xs[i] = float64(i)
		ys[i] = p.Value
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	if math.IsNaN(r2) {
		// constant series: the line explains nothing but fits exactly
		r2 = 0
	}

	last := history[len(history)-1].Period
	points := make([]domain.ProjectionPoint, opts.Horizon)
	for i := range points {
		v := math.Max(0, intercept+slope*float64(len(history)+i))
		points[i] = domain.ProjectionPoint{
			Period: domain.AddMonths(last, i+1),
			Value:  v,
			Lower:  v * (1 - opts.Band),
			Upper:  v * (1 + opts.Band),
		}
	}

	return &domain.Projection{
		Measure:    value,
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   r2,
		Historical: history,
		Points:     points,
		Recent:     recentEstimate(ys, opts.RecentMonths),
	}
}

// recentEstimate takes the mean and range of the last n monthly totals
func recentEstimate(ys []float64, n int) domain.RecentEstimate {
	if n > len(ys) {
		n = len(ys)
	}
	if n == 0 {
		return domain.RecentEstimate{}
	}
	tail := ys[len(ys)-n:]
	return domain.RecentEstimate{
		Months: n,
		Mean:   stat.Mean(tail, nil),
		Min:    floats.Min(tail),
		Max:    floats.Max(tail),
	}
}

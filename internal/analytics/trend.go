package analytics

import (
	"cmp"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/samber/lo"

	"supplypulse/pkg/contracts/domain"
)

// MonthLabel formats a year+month bucket as YYYY-MM
func MonthLabel(d civil.Date) string {
	return domain.MonthLabel(d)
}

// bucketOf maps a date to its trend bucket. Month-name buckets carry year 0
// so that every year collapses into the same twelve periods.
func bucketOf(d civil.Date, mode domain.BucketMode) (civil.Date, string) {
	if mode == domain.BucketMonthName {
		return civil.Date{Month: d.Month, Day: 1}, d.Month.String()
	}
	m := domain.MonthOf(d)
	return m, MonthLabel(m)
}

type periodSum struct {
	label string
	value float64
	count int
}

func sortedPoints(buckets map[civil.Date]*periodSum) []domain.TrendPoint {
	periods := lo.Keys(buckets)
	slices.SortFunc(periods, civil.Date.Compare)

	points := make([]domain.TrendPoint, len(periods))
	for i, p := range periods {
		b := buckets[p]
		points[i] = domain.TrendPoint{Period: p, Label: b.label, Value: b.value, Count: b.count}
	}
	return points
}

// MonthlyTrend sums a measure per month in chronological order. Undated
// records are skipped. BucketYearMonth is used unless BucketMonthName is
// requested explicitly.
func MonthlyTrend(ds *domain.Dataset, value domain.Measure, mode domain.BucketMode) []domain.TrendPoint {
	buckets := make(map[civil.Date]*periodSum)
	for _, r := range ds.All() {
		if !r.HasDate() {
			continue
		}
		period, label := bucketOf(r.Date, mode)
		b, ok := buckets[period]
		if !ok {
			b = &periodSum{label: label}
			buckets[period] = b
		}
		b.value += r.Value(value)
		b.count++
	}
	return sortedPoints(buckets)
}

// DailyTrend sums a measure per calendar day
func DailyTrend(ds *domain.Dataset, value domain.Measure) []domain.TrendPoint {
	buckets := make(map[civil.Date]*periodSum)
	for _, r := range ds.All() {
		if !r.HasDate() {
			continue
		}
		b, ok := buckets[r.Date]
		if !ok {
			b = &periodSum{label: r.Date.String()}
			buckets[r.Date] = b
		}
		b.value += r.Value(value)
		b.count++
	}
	return sortedPoints(buckets)
}

// TrendByMonthAndField builds one monthly series per value of field. Every
// series covers the same months; months without records hold zero.
// Series keep first-seen key order.
func TrendByMonthAndField(ds *domain.Dataset, field domain.Field, value domain.Measure) []domain.SeriesTrend {
	type cell struct {
		value float64
		count int
	}
	var keys []string
	cells := make(map[string]map[civil.Date]*cell)
	months := make(map[civil.Date]bool)

	for _, r := range ds.All() {
		if !r.HasDate() {
			continue
		}
		key := r.Dimension(field)
		byMonth, ok := cells[key]
		if !ok {
			byMonth = make(map[civil.Date]*cell)
			cells[key] = byMonth
			keys = append(keys, key)
		}
		m := domain.MonthOf(r.Date)
		months[m] = true
		c, ok := byMonth[m]
		if !ok {
			c = &cell{}
			byMonth[m] = c
		}
		c.value += r.Value(value)
		c.count++
	}

	periods := lo.Keys(months)
	slices.SortFunc(periods, civil.Date.Compare)

	series := make([]domain.SeriesTrend, len(keys))
	for i, key := range keys {
		points := make([]domain.TrendPoint, len(periods))
		for j, p := range periods {
			points[j] = domain.TrendPoint{Period: p, Label: MonthLabel(p)}
			if c, ok := cells[key][p]; ok {
				points[j].Value = c.value
				points[j].Count = c.count
			}
		}
		series[i] = domain.SeriesTrend{Key: key, Points: points}
	}
	return series
}

// labelBucket accumulates one period label. period is the month of the
// first dated record carrying the label, zero for year-less labels.
type labelBucket struct {
	period civil.Date
	seen   int
	value  float64
	count  int
}

func labelBucketFor(buckets map[string]*labelBucket, label string, r domain.Record) *labelBucket {
	b, ok := buckets[label]
	if !ok {
		b = &labelBucket{seen: len(buckets)}
		buckets[label] = b
	}
	if b.period.IsZero() && r.HasDate() {
		b.period = domain.MonthOf(r.Date)
	}
	return b
}

// sortedLabels orders dated labels chronologically, then year-less labels
// in first-seen order.
func sortedLabels(buckets map[string]*labelBucket) []string {
	labels := lo.Keys(buckets)
	slices.SortFunc(labels, func(a, b string) int {
		pa, pb := buckets[a], buckets[b]
		if pa.period.IsZero() != pb.period.IsZero() {
			if pa.period.IsZero() {
				return 1
			}
			return -1
		}
		if c := pa.period.Compare(pb.period); c != 0 {
			return c
		}
		return cmp.Compare(pa.seen, pb.seen)
	})
	return labels
}

// PeriodTrend sums a measure per period label. Sources that label their
// own periods (stock "Mois") keep those labels even without a year; other
// records use their YYYY-MM month. Records with neither are skipped.
func PeriodTrend(ds *domain.Dataset, value domain.Measure) []domain.TrendPoint {
	buckets := make(map[string]*labelBucket)
	for _, r := range ds.All() {
		label := r.PeriodLabel()
		if label == "" {
			continue
		}
		b := labelBucketFor(buckets, label, r)
		b.value += r.Value(value)
		b.count++
	}

	labels := sortedLabels(buckets)
	points := make([]domain.TrendPoint, len(labels))
	for i, l := range labels {
		b := buckets[l]
		points[i] = domain.TrendPoint{Period: b.period, Label: l, Value: b.value, Count: b.count}
	}
	return points
}

// TrendByPeriodAndField is TrendByMonthAndField over period labels
func TrendByPeriodAndField(ds *domain.Dataset, field domain.Field, value domain.Measure) []domain.SeriesTrend {
	type cell struct {
		value float64
		count int
	}
	var keys []string
	cells := make(map[string]map[string]*cell)
	buckets := make(map[string]*labelBucket)

	for _, r := range ds.All() {
		label := r.PeriodLabel()
		if label == "" {
			continue
		}
		labelBucketFor(buckets, label, r)

		key := r.Dimension(field)
		byLabel, ok := cells[key]
		if !ok {
			byLabel = make(map[string]*cell)
			cells[key] = byLabel
			keys = append(keys, key)
		}
		c, ok := byLabel[label]
		if !ok {
			c = &cell{}
			byLabel[label] = c
		}
		c.value += r.Value(value)
		c.count++
	}

	labels := sortedLabels(buckets)
	series := make([]domain.SeriesTrend, len(keys))
	for i, key := range keys {
		points := make([]domain.TrendPoint, len(labels))
		for j, l := range labels {
			points[j] = domain.TrendPoint{Period: buckets[l].period, Label: l}
			if c, ok := cells[key][l]; ok {
				points[j].Value = c.value
				points[j].Count = c.count
			}
		}
		series[i] = domain.SeriesTrend{Key: key, Points: points}
	}
	return series
}

// DeliveryLeadTime returns the mean order-to-delivery time per order month.
// Orders missing either date are ignored.
func DeliveryLeadTime(ds *domain.Dataset) []domain.LeadTimePoint {
	type leadSum struct {
		days   int
		orders int
	}
	buckets := make(map[civil.Date]*leadSum)
	for _, r := range ds.All() {
		days, ok := r.LeadTime()
		if !ok {
			continue
		}
		m := domain.MonthOf(r.Date)
		b, found := buckets[m]
		if !found {
			b = &leadSum{}
			buckets[m] = b
		}
		b.days += days
		b.orders++
	}

	periods := lo.Keys(buckets)
	slices.SortFunc(periods, civil.Date.Compare)

	points := make([]domain.LeadTimePoint, len(periods))
	for i, p := range periods {
		b := buckets[p]
		points[i] = domain.LeadTimePoint{
			Period:   p,
			Label:    MonthLabel(p),
			MeanDays: float64(b.days) / float64(b.orders),
			Orders:   b.orders,
		}
	}
	return points
}

package analytics

import (
	"slices"

	"github.com/samber/lo"

	"supplypulse/pkg/contracts/domain"
)

// Summarize computes the headline figures of a dataset
func Summarize(ds *domain.Dataset) domain.Summary {
	records := ds.Records()
	s := domain.Summary{Records: len(records)}
	if len(records) == 0 {
		return s
	}

	amounts := make([]float64, len(records))
	for i, r := range records {
		amounts[i] = r.Amount
		s.TotalAmount += r.Amount
		s.TotalQuantity += r.Quantity

		if !r.HasDate() {
			s.UndatedRecords++
			continue
		}
		if s.FirstDate.IsZero() || r.Date.Before(s.FirstDate) {
			s.FirstDate = r.Date
		}
		if s.LastDate.IsZero() || r.Date.After(s.LastDate) {
			s.LastDate = r.Date
		}
	}
	s.MeanAmount = s.TotalAmount / float64(len(records))
	s.MedianAmount = median(amounts)

	distinct := func(get func(domain.Record) string) int {
		return len(lo.Uniq(lo.Map(records, func(r domain.Record, _ int) string { return get(r) })))
	}
	s.DistinctArticles = distinct(func(r domain.Record) string { return r.Article })
	s.DistinctCategories = distinct(func(r domain.Record) string { return r.Category })
	s.DistinctSuppliers = distinct(func(r domain.Record) string { return r.Supplier })

	if top := TopN(ds, domain.FieldCategory, domain.MeasureAmount, 1); len(top) == 1 {
		s.TopCategory, s.TopCategoryAmount = top[0].Label, top[0].Value
	}
	if top := TopN(ds, domain.FieldArticle, domain.MeasureAmount, 1); len(top) == 1 {
		s.TopArticle, s.TopArticleAmount = top[0].Label, top[0].Value
	}
	return s
}

// median sorts values in place
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	slices.Sort(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

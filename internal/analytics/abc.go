package analytics

import (
	"supplypulse/pkg/contracts/domain"
)

const (
	// ClassALimit is the cumulative share up to which items are class A
	ClassALimit = 0.80
	// ClassBLimit is the cumulative share up to which items are class B
	ClassBLimit = 0.95

	shareEpsilon = 1e-9
)

// ABCClassify ranks the groups of one field by descending value and tiers
// them by cumulative share of the total. Every group receives exactly one
// class and the class totals add up to the dataset total. A dataset whose
// total is not positive yields a result without items.
func ABCClassify(ds *domain.Dataset, by domain.Field, value domain.Measure) domain.ABCResult {
	result := domain.ABCResult{Field: by, Measure: value}

	groups := GroupSum(ds, []domain.Field{by}, value).Groups
	sortByValueDesc(groups)

	var total float64
	for _, g := range groups {
		total += g.Value
	}
	if total <= 0 {
		return result
	}
	result.Total = total

	summaries := map[domain.ABCClass]*domain.ABCClassSummary{
		domain.ClassA: {Class: domain.ClassA},
		domain.ClassB: {Class: domain.ClassB},
		domain.ClassC: {Class: domain.ClassC},
	}

	items := make([]domain.ABCItem, len(groups))
	var cumulative float64
	for i, g := range groups {
		cumulative += g.Value
		share := cumulative / total

		class := domain.ClassC
		switch {
		case share <= ClassALimit+shareEpsilon:
			class = domain.ClassA
		case share <= ClassBLimit+shareEpsilon:
			class = domain.ClassB
		}

		items[i] = domain.ABCItem{
			Key:             g.Label,
			Value:           g.Value,
			Share:           g.Value / total,
			CumulativeShare: share,
			Class:           class,
		}
		s := summaries[class]
		s.Items++
		s.Total += g.Value
	}

	result.Items = items
	for _, c := range []domain.ABCClass{domain.ClassA, domain.ClassB, domain.ClassC} {
		s := summaries[c]
		s.Share = s.Total / total
		result.Classes = append(result.Classes, *s)
	}
	return result
}

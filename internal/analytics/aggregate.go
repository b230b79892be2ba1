package analytics

import (
	"slices"

	"supplypulse/pkg/contracts/domain"
)

// accumulator collects groups in first-seen key order
type accumulator struct {
	index  map[string]int
	groups []domain.Group
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

func (a *accumulator) add(keys []string, value float64, r domain.Record) {
	label := domain.JoinKeys(keys)
	i, ok := a.index[label]
	if !ok {
		i = len(a.groups)
		a.index[label] = i
		a.groups = append(a.groups, domain.Group{Keys: slices.Clone(keys), Label: label})
	}
	g := &a.groups[i]
	g.Value += value
	g.Amount += r.Amount
	g.Quantity += r.Quantity
	g.Count++
}

func (a *accumulator) result() []domain.Group {
	for i := range a.groups {
		if a.groups[i].Count > 0 {
			a.groups[i].Mean = a.groups[i].Value / float64(a.groups[i].Count)
		}
	}
	return a.groups
}

// GroupSum sums a measure per distinct combination of the given fields.
// Groups keep the order in which their key first appears. With no fields
// every record falls into a single group with empty keys.
func GroupSum(ds *domain.Dataset, by []domain.Field, value domain.Measure) domain.AggregationResult {
	acc := newAccumulator()
	keys := make([]string, len(by))
	for _, r := range ds.All() {
		for i, f := range by {
			keys[i] = r.Dimension(f)
		}
		acc.add(keys, r.Value(value), r)
	}
	return domain.AggregationResult{
		Fields:  slices.Clone(by),
		Measure: value,
		Groups:  acc.result(),
	}
}

// TopN returns at most n groups of one field ordered by descending value.
// Ties keep first-seen order.
func TopN(ds *domain.Dataset, by domain.Field, value domain.Measure, n int) []domain.Group {
	if n <= 0 {
		return nil
	}
	groups := GroupSum(ds, []domain.Field{by}, value).Groups
	sortByValueDesc(groups)
	return groups[:min(n, len(groups))]
}

// CountBy counts records per value of a field, most frequent first.
// Value and Count both hold the record count.
func CountBy(ds *domain.Dataset, field domain.Field) []domain.Group {
	acc := newAccumulator()
	key := make([]string, 1)
	for _, r := range ds.All() {
		key[0] = r.Dimension(field)
		acc.add(key, 1, r)
	}
	groups := acc.result()
	sortByValueDesc(groups)
	return groups
}

// TopPair returns the largest combination of two fields, or nil for an
// empty dataset.
func TopPair(ds *domain.Dataset, first, second domain.Field, value domain.Measure) *domain.Group {
	all := GroupSum(ds, []domain.Field{first, second}, value).Groups
	if len(all) == 0 {
		return nil
	}
	sortByValueDesc(all)
	top := all[0]
	return &top
}

func sortByValueDesc(groups []domain.Group) {
	slices.SortStableFunc(groups, func(a, b domain.Group) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	})
}

package analytics

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"supplypulse/pkg/contracts/domain"
)

// DefaultMinOrders is the order count below which a supplier is not scored
const DefaultMinOrders = 3

// SupplierReliability scores suppliers with at least minOrders orders that
// carry both a promised and a delivered date, best mean delay first.
func SupplierReliability(ds *domain.Dataset, minOrders int) []domain.SupplierScore {
	scores, _ := SupplierReliabilityReport(ds, minOrders)
	return scores
}

// SupplierReliabilityReport is SupplierReliability plus a skip entry for
// every supplier that had dated orders but too few of them.
func SupplierReliabilityReport(ds *domain.Dataset, minOrders int) ([]domain.SupplierScore, []domain.SkipEntry) {
	if minOrders <= 0 {
		minOrders = DefaultMinOrders
	}

	type tally struct {
		orders, onTime, delay int
	}
	var order []string
	tallies := make(map[string]*tally)
	for _, r := range ds.All() {
		delay, ok := r.DeliveryDelay()
		if !ok {
			continue
		}
		t, found := tallies[r.Supplier]
		if !found {
			t = &tally{}
			tallies[r.Supplier] = t
			order = append(order, r.Supplier)
		}
		t.orders++
		t.delay += delay
		if delay <= 0 {
			t.onTime++
		}
	}

	var (
		scores  []domain.SupplierScore
		skipped []domain.SkipEntry
	)
	for _, supplier := range order {
		t := tallies[supplier]
		if t.orders < minOrders {
			skipped = append(skipped, domain.SkipEntry{
				Stage:  domain.StageReliability,
				Item:   supplier,
				Reason: fmt.Sprintf("insufficient data: %d orders", t.orders),
			})
			continue
		}
		scores = append(scores, domain.SupplierScore{
			Supplier:      supplier,
			Orders:        t.orders,
			OnTimeOrders:  t.onTime,
			MeanDelayDays: float64(t.delay) / float64(t.orders),
			OnTimeRate:    float64(t.onTime) / float64(t.orders),
		})
	}

	slices.SortStableFunc(scores, func(a, b domain.SupplierScore) int {
		switch {
		case a.MeanDelayDays < b.MeanDelayDays:
			return -1
		case a.MeanDelayDays > b.MeanDelayDays:
			return 1
		}
		return 0
	})
	return scores, skipped
}

// SupplierVolume returns the n suppliers with the most orders among those
// with at least minOrders. Count is the order count and Value the amount.
func SupplierVolume(ds *domain.Dataset, minOrders, n int) []domain.Group {
	if minOrders <= 0 {
		minOrders = DefaultMinOrders
	}
	groups := lo.Filter(GroupSum(ds, []domain.Field{domain.FieldSupplier}, domain.MeasureAmount).Groups,
		func(g domain.Group, _ int) bool { return g.Count >= minOrders })

	slices.SortStableFunc(groups, func(a, b domain.Group) int { return b.Count - a.Count })
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

package analytics

import (
	"slices"

	"supplypulse/pkg/contracts/domain"
)

// AlertThresholds configures StockAlerts
type AlertThresholds struct {
	LowQuantity   float64 `yaml:"low_quantity"`
	HighAmount    float64 `yaml:"high_amount"`
	HighUnitPrice float64 `yaml:"high_unit_price"`
	MaxAlerts     int     `yaml:"max_alerts"`
}

// DefaultAlertThresholds returns the standard stock alert limits
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		LowQuantity:   10,
		HighAmount:    100000,
		HighUnitPrice: 1000,
		MaxAlerts:     100,
	}
}

// stockLine is the aggregate of one article across all periods
type stockLine struct {
	article, code string
	quantity      float64
	amount        float64
}

func (l stockLine) unitPrice() float64 {
	return domain.ComputeUnitCost(l.amount, l.quantity)
}

func stockLines(ds *domain.Dataset) []stockLine {
	index := make(map[[2]string]int)
	var lines []stockLine
	for _, r := range ds.All() {
		key := [2]string{r.Code, r.Article}
		i, ok := index[key]
		if !ok {
			i = len(lines)
			index[key] = i
			lines = append(lines, stockLine{article: r.Article, code: r.Code})
		}
		lines[i].quantity += r.Quantity
		lines[i].amount += r.Amount
	}
	return lines
}

// StockTurnover divides each article's total quantity by the number of
// distinct periods in the dataset and returns the n fastest and n slowest
// movers. Slowest lists the lowest turnover first. Periods are the source's
// period labels, or months for records without one.
func StockTurnover(ds *domain.Dataset, n int) domain.TurnoverResult {
	labels := make(map[string]bool)
	for _, r := range ds.All() {
		if l := r.PeriodLabel(); l != "" {
			labels[l] = true
		}
	}
	periods := max(len(labels), 1)

	lines := stockLines(ds)
	items := make([]domain.TurnoverItem, len(lines))
	for i, l := range lines {
		items[i] = domain.TurnoverItem{
			Article:  l.article,
			Code:     l.code,
			Quantity: l.quantity,
			Turnover: l.quantity / float64(periods),
		}
	}

	result := domain.TurnoverResult{Periods: len(labels)}
	if n <= 0 || len(items) == 0 {
		return result
	}

	slices.SortStableFunc(items, func(a, b domain.TurnoverItem) int {
		switch {
		case a.Turnover > b.Turnover:
			return -1
		case a.Turnover < b.Turnover:
			return 1
		}
		return 0
	})
	k := min(n, len(items))
	result.Fastest = slices.Clone(items[:k])

	slowest := slices.Clone(items[len(items)-k:])
	slices.Reverse(slowest)
	result.Slowest = slowest
	return result
}

// StockAlerts checks every article aggregate against the thresholds. Alerts
// are grouped by kind: low stock, high cost, high unit price, then data
// issues. At most MaxAlerts are returned.
func StockAlerts(ds *domain.Dataset, th AlertThresholds) []domain.StockAlert {
	if th.MaxAlerts <= 0 {
		th.MaxAlerts = DefaultAlertThresholds().MaxAlerts
	}
	lines := stockLines(ds)

	alert := func(kind domain.AlertKind, l stockLine, threshold float64) domain.StockAlert {
		return domain.StockAlert{
			Kind:      kind,
			Article:   l.article,
			Code:      l.code,
			Quantity:  l.quantity,
			Amount:    l.amount,
			UnitPrice: l.unitPrice(),
			Threshold: threshold,
		}
	}

	checks := []struct {
		kind      domain.AlertKind
		threshold float64
		hit       func(stockLine) bool
	}{
		{domain.AlertLowStock, th.LowQuantity, func(l stockLine) bool { return l.quantity < th.LowQuantity }},
		{domain.AlertHighCost, th.HighAmount, func(l stockLine) bool { return l.amount > th.HighAmount }},
		{domain.AlertHighUnitPrice, th.HighUnitPrice, func(l stockLine) bool { return l.unitPrice() > th.HighUnitPrice }},
		{domain.AlertDataIssue, 0, func(l stockLine) bool { return l.quantity <= 0 || l.amount <= 0 }},
	}

	var alerts []domain.StockAlert
	for _, c := range checks {
		for _, l := range lines {
			if !c.hit(l) {
				continue
			}
			alerts = append(alerts, alert(c.kind, l, c.threshold))
			if len(alerts) == th.MaxAlerts {
				return alerts
			}
		}
	}
	return alerts
}

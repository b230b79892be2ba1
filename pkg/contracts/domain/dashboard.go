package domain

import (
	"time"
)

// Dashboard bundles every metric computed for one dataset and filter.
// Sections that do not apply to the dataset kind are left empty.
type Dashboard struct {
	ID          string      `json:"id"`
	Kind        DatasetKind `json:"kind"`
	Source      string      `json:"source"`
	Fingerprint string      `json:"fingerprint"`
	Filter      Filter      `json:"filter"`
	GeneratedAt time.Time   `json:"generated_at"`
	Warnings    int         `json:"parse_warnings"`

	Summary        Summary           `json:"summary"`
	ByCategory     AggregationResult `json:"by_category"`
	ByOrganization AggregationResult `json:"by_organization"`
	ByGroup        AggregationResult `json:"by_group"`
	TopArticles    []Group           `json:"top_articles"`
	TopSuppliers   []Group           `json:"top_suppliers,omitempty"`
	MonthlyTrend   []TrendPoint      `json:"monthly_trend"`
	DailyTrend     []TrendPoint      `json:"daily_trend,omitempty"`
	CategoryTrends []SeriesTrend     `json:"category_trends,omitempty"`

	StatusCounts   []Group         `json:"status_counts,omitempty"`
	SupplierVolume []Group         `json:"supplier_volume,omitempty"`
	Reliability    []SupplierScore `json:"supplier_reliability,omitempty"`
	LeadTimes      []LeadTimePoint `json:"lead_times,omitempty"`
	TopPair        *Group          `json:"top_pair,omitempty"`

	ABC        *ABCResult      `json:"abc,omitempty"`
	Turnover   *TurnoverResult `json:"turnover,omitempty"`
	Alerts     []StockAlert    `json:"alerts,omitempty"`
	Projection *Projection     `json:"projection,omitempty"`

	Forecast  ForecastBatch `json:"forecast"`
	Anomalies AnomalyReport `json:"anomalies"`
	Skipped   []SkipEntry   `json:"skipped"`
}

package domain

import (
	"slices"
	"strings"

	"cloud.google.com/go/civil"
)

// KeySeparator joins multi-field group keys into a display label
const KeySeparator = " / "

// Group is the numeric summary of one distinct key combination
type Group struct {
	Keys     []string `json:"keys"`
	Label    string   `json:"label"`
	Value    float64  `json:"value"`
	Amount   float64  `json:"amount"`
	Quantity float64  `json:"quantity"`
	Count    int      `json:"count"`
	Mean     float64  `json:"mean"`
}

// AggregationResult holds groups in first-seen order
type AggregationResult struct {
	Fields  []Field `json:"fields"`
	Measure Measure `json:"measure"`
	Groups  []Group `json:"groups"`
}

// Len returns the number of groups
func (a AggregationResult) Len() int {
	return len(a.Groups)
}

// Lookup finds the group for the given key values
func (a AggregationResult) Lookup(keys ...string) (Group, bool) {
	for _, g := range a.Groups {
		if slices.Equal(g.Keys, keys) {
			return g, true
		}
	}
	return Group{}, false
}

// Sum adds Value across all groups
func (a AggregationResult) Sum() float64 {
	var total float64
	for _, g := range a.Groups {
		total += g.Value
	}
	return total
}

// JoinKeys builds the display label of a key combination
func JoinKeys(keys []string) string {
	return strings.Join(keys, KeySeparator)
}

// BucketMode selects how dates are grouped into months
type BucketMode string

const (
	// BucketYearMonth keys buckets by year and month
	BucketYearMonth BucketMode = "year_month"
	// BucketMonthName keys buckets by month name only, merging years
	BucketMonthName BucketMode = "month_name"
)

// TrendPoint is one period of a time series
type TrendPoint struct {
	Period civil.Date `json:"period"`
	Label  string     `json:"label"`
	Value  float64    `json:"value"`
	Count  int        `json:"count"`
}

// SeriesTrend is a time series for one key, used for month x category views
type SeriesTrend struct {
	Key    string       `json:"key"`
	Points []TrendPoint `json:"points"`
}

// LeadTimePoint is the mean order-to-delivery time for orders placed in a month
type LeadTimePoint struct {
	Period   civil.Date `json:"period"`
	Label    string     `json:"label"`
	MeanDays float64    `json:"mean_days"`
	Orders   int        `json:"orders"`
}

// SupplierScore summarizes delivery performance of one supplier
type SupplierScore struct {
	Supplier      string  `json:"supplier"`
	Orders        int     `json:"orders"`
	OnTimeOrders  int     `json:"on_time_orders"`
	MeanDelayDays float64 `json:"mean_delay_days"`
	OnTimeRate    float64 `json:"on_time_rate"`
}

// ABCClass is an inventory value tier
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// ABCItem is one classified item
type ABCItem struct {
	Key             string   `json:"key"`
	Value           float64  `json:"value"`
	Share           float64  `json:"share"`
	CumulativeShare float64  `json:"cumulative_share"`
	Class           ABCClass `json:"class"`
}

// ABCClassSummary totals one tier
type ABCClassSummary struct {
	Class ABCClass `json:"class"`
	Items int      `json:"items"`
	Total float64  `json:"total"`
	Share float64  `json:"share"`
}

// ABCResult is the outcome of an ABC classification
type ABCResult struct {
	Field   Field             `json:"field"`
	Measure Measure           `json:"measure"`
	Total   float64           `json:"total"`
	Items   []ABCItem         `json:"items"`
	Classes []ABCClassSummary `json:"classes"`
}

// TurnoverItem is the average quantity moved per period for one article
type TurnoverItem struct {
	Article  string  `json:"article"`
	Code     string  `json:"code"`
	Quantity float64 `json:"quantity"`
	Turnover float64 `json:"turnover"`
}

// TurnoverResult lists the fastest and slowest moving articles
type TurnoverResult struct {
	Periods int            `json:"periods"`
	Fastest []TurnoverItem `json:"fastest"`
	Slowest []TurnoverItem `json:"slowest"`
}

// AlertKind classifies a stock alert
type AlertKind string

const (
	AlertLowStock      AlertKind = "low_stock"
	AlertHighCost      AlertKind = "high_cost"
	AlertHighUnitPrice AlertKind = "high_unit_price"
	AlertDataIssue     AlertKind = "data_issue"
)

// StockAlert flags one article whose aggregate crosses a threshold
type StockAlert struct {
	Kind      AlertKind `json:"kind"`
	Article   string    `json:"article"`
	Code      string    `json:"code"`
	Quantity  float64   `json:"quantity"`
	Amount    float64   `json:"amount"`
	UnitPrice float64   `json:"unit_price"`
	Threshold float64   `json:"threshold"`
}

// Summary holds the headline scalars of a dataset
type Summary struct {
	Records            int        `json:"records"`
	UndatedRecords     int        `json:"undated_records"`
	TotalAmount        float64    `json:"total_amount"`
	TotalQuantity      float64    `json:"total_quantity"`
	MeanAmount         float64    `json:"mean_amount"`
	MedianAmount       float64    `json:"median_amount"`
	DistinctArticles   int        `json:"distinct_articles"`
	DistinctCategories int        `json:"distinct_categories"`
	DistinctSuppliers  int        `json:"distinct_suppliers"`
	TopCategory        string     `json:"top_category"`
	TopCategoryAmount  float64    `json:"top_category_amount"`
	TopArticle         string     `json:"top_article"`
	TopArticleAmount   float64    `json:"top_article_amount"`
	FirstDate          civil.Date `json:"first_date"`
	LastDate           civil.Date `json:"last_date"`
}

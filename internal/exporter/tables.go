package exporter

import (
	"strings"

	"supplypulse/pkg/contracts/domain"
)

// Table is one named grid of typed cells. Text outputs format cells with
// cellText; the workbook writer keeps numbers numeric.
type Table struct {
	Name    string
	Title   string
	Headers []string
	Rows    [][]any
}

// Empty reports whether the table has no data rows
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// TextRows returns the rows formatted as strings
func (t Table) TextRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellText(v)
		}
		out[i] = cells
	}
	return out
}

// FindTable returns the table with the given name
func FindTable(tables []Table, name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames lists the names of the tables
func TableNames(tables []Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// RecordsTable lists every record of a dataset with the columns its kind uses
func RecordsTable(ds *domain.Dataset) Table {
	t := Table{Name: "records", Title: "Records"}
	if ds == nil {
		return t
	}

	switch ds.Kind() {
	case domain.KindProcurement:
		t.Headers = []string{"Row", "Order date", "Promised", "Delivered", "Organization", "Category", "Article", "Supplier", "Status", "Quantity", "Amount"}
		for _, r := range ds.All() {
			t.Rows = append(t.Rows, []any{r.Row, r.Date, r.PromisedDate, r.DeliveredDate, r.Organization, r.Category, r.Article, r.Supplier, r.Status, r.Quantity, r.Amount})
		}
	case domain.KindEquipment:
		t.Headers = []string{"Row", "Date", "Equipment", "Group", "Article", "Category", "Quantity", "Amount"}
		for _, r := range ds.All() {
			t.Rows = append(t.Rows, []any{r.Row, r.Date, r.Equipment, r.Group, r.Article, r.Category, r.Quantity, r.Amount})
		}
	case domain.KindStock:
		t.Headers = []string{"Row", "Date", "Code", "Article", "Group", "Category", "Quantity", "Unit price", "Amount"}
		for _, r := range ds.All() {
			t.Rows = append(t.Rows, []any{r.Row, r.Date, r.Code, r.Article, r.Group, r.Category, r.Quantity, r.UnitPrice, r.Amount})
		}
	default:
		t.Headers = []string{"Row", "Date", "Organization", "Category", "Article", "Supplier", "Quantity", "Amount", "Unit cost"}
		for _, r := range ds.All() {
			t.Rows = append(t.Rows, []any{r.Row, r.Date, r.Organization, r.Category, r.Article, r.Supplier, r.Quantity, r.Amount, r.UnitCost})
		}
	}
	return t
}

// DashboardTables flattens a dashboard into tables, skipping empty sections
func DashboardTables(d *domain.Dashboard) []Table {
	if d == nil {
		return nil
	}

	tables := []Table{summaryTable(d)}
	add := func(t Table) {
		if !t.Empty() {
			tables = append(tables, t)
		}
	}

	add(groupTable("by_category", "Spend by category", d.ByCategory.Groups))
	add(groupTable("by_organization", "Spend by organization", d.ByOrganization.Groups))
	add(groupTable("by_group", "Spend by group", d.ByGroup.Groups))
	add(groupTable("top_articles", "Top articles", d.TopArticles))
	add(groupTable("top_suppliers", "Top suppliers", d.TopSuppliers))
	add(trendTable("monthly_trend", "Monthly trend", d.MonthlyTrend))
	add(trendTable("daily_trend", "Daily trend", d.DailyTrend))
	add(categoryTrendTable(d.CategoryTrends))
	add(groupTable("status_counts", "Orders by status", d.StatusCounts))
	add(groupTable("supplier_volume", "Supplier volume", d.SupplierVolume))
	add(reliabilityTable(d.Reliability))
	add(leadTimeTable(d.LeadTimes))
	if d.ABC != nil {
		add(abcTable(d.ABC))
	}
	if d.Turnover != nil {
		add(turnoverTable(d.Turnover))
	}
	add(alertTable(d.Alerts))
	if d.Projection != nil {
		add(projectionTable(d.Projection))
		add(recentEstimateTable(d.Projection.Recent))
	}
	add(forecastTable(d.Forecast))
	add(recommendationTable(d.Forecast.Recommendations))
	add(anomalyTable(d.Anomalies))
	add(skippedTable(d.Skipped))
	return tables
}

func summaryTable(d *domain.Dashboard) Table {
	s := d.Summary
	t := Table{Name: "summary", Title: "Summary", Headers: []string{"Metric", "Value"}}
	t.Rows = [][]any{
		{"Dataset", string(d.Kind)},
		{"Source", d.Source},
		{"Records", s.Records},
		{"Undated records", s.UndatedRecords},
		{"Parse warnings", d.Warnings},
		{"Total amount", s.TotalAmount},
		{"Total quantity", s.TotalQuantity},
		{"Mean amount", s.MeanAmount},
		{"Median amount", s.MedianAmount},
		{"Distinct articles", s.DistinctArticles},
		{"Distinct categories", s.DistinctCategories},
		{"Top category", s.TopCategory},
		{"Top article", s.TopArticle},
		{"First date", s.FirstDate},
		{"Last date", s.LastDate},
	}
	if s.DistinctSuppliers > 0 {
		t.Rows = append(t.Rows, []any{"Distinct suppliers", s.DistinctSuppliers})
	}
	if !d.Filter.IsEmpty() {
		t.Rows = append(t.Rows, []any{"Filter", d.Filter.Key()})
	}
	return t
}

func groupTable(name, title string, groups []domain.Group) Table {
	t := Table{Name: name, Title: title, Headers: []string{"Key", "Value", "Amount", "Quantity", "Count", "Mean"}}
	for _, g := range groups {
		t.Rows = append(t.Rows, []any{g.Label, g.Value, g.Amount, g.Quantity, g.Count, g.Mean})
	}
	return t
}

func trendTable(name, title string, points []domain.TrendPoint) Table {
	t := Table{Name: name, Title: title, Headers: []string{"Period", "Value", "Count"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []any{p.Label, p.Value, p.Count})
	}
	return t
}

func categoryTrendTable(series []domain.SeriesTrend) Table {
	t := Table{Name: "category_trends", Title: "Monthly trend by category", Headers: []string{"Category", "Period", "Value", "Count"}}
	for _, s := range series {
		for _, p := range s.Points {
			t.Rows = append(t.Rows, []any{s.Key, p.Label, p.Value, p.Count})
		}
	}
	return t
}

func reliabilityTable(scores []domain.SupplierScore) Table {
	t := Table{Name: "supplier_reliability", Title: "Supplier reliability", Headers: []string{"Supplier", "Orders", "On time", "On-time rate", "Mean delay (days)"}}
	for _, s := range scores {
		t.Rows = append(t.Rows, []any{s.Supplier, s.Orders, s.OnTimeOrders, Percent(s.OnTimeRate), s.MeanDelayDays})
	}
	return t
}

func leadTimeTable(points []domain.LeadTimePoint) Table {
	t := Table{Name: "lead_times", Title: "Delivery lead time", Headers: []string{"Period", "Mean days", "Orders"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []any{p.Label, p.MeanDays, p.Orders})
	}
	return t
}

func abcTable(r *domain.ABCResult) Table {
	t := Table{Name: "abc", Title: "ABC classification", Headers: []string{"Key", "Value", "Share", "Cumulative share", "Class"}}
	for _, it := range r.Items {
		t.Rows = append(t.Rows, []any{it.Key, it.Value, Percent(it.Share), Percent(it.CumulativeShare), string(it.Class)})
	}
	return t
}

func turnoverTable(r *domain.TurnoverResult) Table {
	t := Table{Name: "turnover", Title: "Stock turnover", Headers: []string{"Rank", "Article", "Code", "Quantity", "Turnover per period"}}
	for _, it := range r.Fastest {
		t.Rows = append(t.Rows, []any{"fastest", it.Article, it.Code, it.Quantity, it.Turnover})
	}
	for _, it := range r.Slowest {
		t.Rows = append(t.Rows, []any{"slowest", it.Article, it.Code, it.Quantity, it.Turnover})
	}
	return t
}

func alertTable(alerts []domain.StockAlert) Table {
	t := Table{Name: "alerts", Title: "Stock alerts", Headers: []string{"Kind", "Article", "Code", "Quantity", "Amount", "Unit price", "Threshold"}}
	for _, a := range alerts {
		t.Rows = append(t.Rows, []any{string(a.Kind), a.Article, a.Code, a.Quantity, a.Amount, a.UnitPrice, a.Threshold})
	}
	return t
}

func projectionTable(p *domain.Projection) Table {
	t := Table{Name: "projection", Title: "Linear projection", Headers: []string{"Period", "Kind", "Value", "Lower", "Upper"}}
	for _, h := range p.Historical {
		t.Rows = append(t.Rows, []any{h.Period, string(domain.SeriesHistorical), h.Value, nil, nil})
	}
	for _, pt := range p.Points {
		t.Rows = append(t.Rows, []any{pt.Period, string(domain.SeriesForecast), pt.Value, pt.Lower, pt.Upper})
	}
	return t
}

func recentEstimateTable(e domain.RecentEstimate) Table {
	t := Table{Name: "recent_estimate", Title: "Recent monthly estimate", Headers: []string{"Months", "Mean", "Min", "Max"}}
	if e.Months > 0 {
		t.Rows = append(t.Rows, []any{e.Months, e.Mean, e.Min, e.Max})
	}
	return t
}

func forecastTable(b domain.ForecastBatch) Table {
	t := Table{Name: "forecast", Title: "Demand forecast", Headers: []string{"Item", "Period", "Kind", "Value"}}
	for _, s := range b.Series() {
		for _, p := range s.Historical {
			t.Rows = append(t.Rows, []any{s.Item, p.Period, string(p.Kind), p.Value})
		}
		for _, p := range s.Forecast {
			t.Rows = append(t.Rows, []any{s.Item, p.Period, string(p.Kind), p.Value})
		}
	}
	return t
}

func recommendationTable(recs []domain.Recommendation) Table {
	t := Table{Name: "recommendations", Title: "Stock recommendations", Headers: []string{"Item", "Forecast total", "Safety margin", "Suggested stock"}}
	for _, r := range recs {
		t.Rows = append(t.Rows, []any{r.Item, r.ForecastTotal, Percent(r.SafetyMargin), r.SuggestedStock})
	}
	return t
}

func anomalyTable(r domain.AnomalyReport) Table {
	t := Table{Name: "anomalies", Title: "Anomalies", Headers: []string{"Row", "Date", "Category", "Article", "Organization", "Amount", "Z-score", "Category mean"}}
	for _, a := range r.Anomalies {
		t.Rows = append(t.Rows, []any{a.Row, a.Date, a.Category, a.Article, a.Organization, a.Amount, a.ZScore, a.CategoryMean})
	}
	return t
}

func skippedTable(entries []domain.SkipEntry) Table {
	t := Table{Name: "skipped", Title: "Skipped", Headers: []string{"Stage", "Item", "Reason"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []any{string(e.Stage), e.Item, e.Reason})
	}
	return t
}

// sheetName fits a table title into Excel's 31 character sheet name limit
func sheetName(t Table) string {
	name := t.Title
	if name == "" {
		name = t.Name
	}
	name = strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")", ":", "-").Replace(name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

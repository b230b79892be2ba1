package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DefaultUnknown is the label substituted for missing categorical values
const DefaultUnknown = "Unknown"

// Field names a categorical dimension of a Record
type Field string

const (
	FieldOrganization Field = "organization"
	FieldCategory     Field = "category"
	FieldArticle      Field = "article"
	FieldSupplier     Field = "supplier"
	FieldGroup        Field = "group"
	FieldEquipment    Field = "equipment"
	FieldCode         Field = "code"
	FieldStatus       Field = "status"
)

// Valid reports whether f is a known field
func (f Field) Valid() bool {
	switch f {
	case FieldOrganization, FieldCategory, FieldArticle, FieldSupplier,
		FieldGroup, FieldEquipment, FieldCode, FieldStatus:
		return true
	}
	return false
}

// Measure names a numeric attribute of a Record
type Measure string

const (
	MeasureAmount    Measure = "amount"
	MeasureQuantity  Measure = "quantity"
	MeasureUnitCost  Measure = "unit_cost"
	MeasureUnitPrice Measure = "unit_price"
)

// Valid reports whether m is a known measure
func (m Measure) Valid() bool {
	switch m {
	case MeasureAmount, MeasureQuantity, MeasureUnitCost, MeasureUnitPrice:
		return true
	}
	return false
}

// Record is one normalized transactional row.
// String fields are never empty and numeric fields are never NaN once a
// Record leaves ingestion. A zero civil.Date means the date is unknown.
type Record struct {
	Row int `json:"row"`

	Date          civil.Date `json:"date"`
	PromisedDate  civil.Date `json:"promised_date"`
	DeliveredDate civil.Date `json:"delivered_date"`
	// Period is the source's own period label (stock "Mois"), kept verbatim
	// whether or not it parses as a date
	Period string `json:"period,omitempty"`

	Organization string `json:"organization"`
	Category     string `json:"category"`
	Article      string `json:"article"`
	Supplier     string `json:"supplier"`
	Group        string `json:"group"`
	Equipment    string `json:"equipment"`
	Code         string `json:"code"`
	Status       string `json:"status"`

	Quantity  float64 `json:"quantity"`
	Amount    float64 `json:"amount"`
	UnitPrice float64 `json:"unit_price"`
	UnitCost  float64 `json:"unit_cost"`
}

// Dimension returns the value of a categorical field
func (r Record) Dimension(f Field) string {
	switch f {
	case FieldOrganization:
		return r.Organization
	case FieldCategory:
		return r.Category
	case FieldArticle:
		return r.Article
	case FieldSupplier:
		return r.Supplier
	case FieldGroup:
		return r.Group
	case FieldEquipment:
		return r.Equipment
	case FieldCode:
		return r.Code
	case FieldStatus:
		return r.Status
	default:
		return ""
	}
}

// Value returns the value of a numeric measure
func (r Record) Value(m Measure) float64 {
	switch m {
	case MeasureAmount:
		return r.Amount
	case MeasureQuantity:
		return r.Quantity
	case MeasureUnitCost:
		return r.UnitCost
	case MeasureUnitPrice:
		return r.UnitPrice
	default:
		return 0
	}
}

// PeriodLabel returns the source period label, or the YYYY-MM month of the
// date when the source has none. Empty when neither is known.
func (r Record) PeriodLabel() string {
	if r.Period != "" {
		return r.Period
	}
	if r.HasDate() {
		return MonthLabel(r.Date)
	}
	return ""
}

// HasDate reports whether the record carries a transaction date
func (r Record) HasDate() bool {
	return !r.Date.IsZero()
}

// DeliveryDelay returns delivered minus promised in days.
// ok is false when either date is unknown.
func (r Record) DeliveryDelay() (days int, ok bool) {
	if r.PromisedDate.IsZero() || r.DeliveredDate.IsZero() {
		return 0, false
	}
	return r.DeliveredDate.DaysSince(r.PromisedDate), true
}

// LeadTime returns delivered minus ordered in days.
func (r Record) LeadTime() (days int, ok bool) {
	if r.Date.IsZero() || r.DeliveredDate.IsZero() {
		return 0, false
	}
	return r.DeliveredDate.DaysSince(r.Date), true
}

// ComputeUnitCost derives UnitCost from Amount and Quantity
func ComputeUnitCost(amount, quantity float64) float64 {
	if quantity > 0 {
		return amount / quantity
	}
	return 0
}

// MonthLabel formats the month of d as YYYY-MM
func MonthLabel(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// MonthOf returns the first day of the month containing d
func MonthOf(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths returns the first day of the month n months after the month of d
func AddMonths(d civil.Date, n int) civil.Date {
	m := int(d.Month) - 1 + n
	y := d.Year + m/12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	return civil.Date{Year: y, Month: time.Month(m + 1), Day: 1}
}

package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"supplypulse/pkg/contracts/domain"
)

// maxSerialDate is 9999-12-31 in the 1900 date system
const maxSerialDate = 2958465

// dateLayouts are tried in order for text dates
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01",
	"01/2006",
	"01-2006",
}

var monthNames = map[string]time.Month{
	"january": time.January, "janvier": time.January, "jan": time.January, "janv": time.January,
	"february": time.February, "fevrier": time.February, "février": time.February, "feb": time.February, "fev": time.February, "févr": time.February,
	"march": time.March, "mars": time.March, "mar": time.March,
	"april": time.April, "avril": time.April, "apr": time.April, "avr": time.April,
	"may": time.May, "mai": time.May,
	"june": time.June, "juin": time.June, "jun": time.June,
	"july": time.July, "juillet": time.July, "jul": time.July, "juil": time.July,
	"august": time.August, "aout": time.August, "août": time.August, "aug": time.August,
	"september": time.September, "septembre": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "octobre": time.October, "oct": time.October,
	"november": time.November, "novembre": time.November, "nov": time.November,
	"december": time.December, "decembre": time.December, "décembre": time.December, "dec": time.December, "déc": time.December,
}

// NormalizeHeader strips whitespace, a UTF-8 BOM and quote characters from a header cell
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	return strings.TrimSpace(strings.Trim(h, "\"'`\u201c\u201d\u2018\u2019"))
}

// ParseNumber parses a numeric cell. Empty cells yield 0 with ok=true;
// unparseable or non-finite values yield 0 with ok=false.
func ParseNumber(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" || s == "-" {
		return 0, true
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		// 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && strings.Count(s, ",") > 1:
		// 1,234,567
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		// 1234,5
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDate parses a date cell. Empty cells yield the zero date with ok=true;
// unparseable values yield the zero date with ok=false.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, true
	}

	if len(s) == 8 && isDigits(s) {
		if t, err := time.Parse("20060102", s); err == nil {
			return civil.DateOf(t), true
		}
	}

	if len(s) == 6 && isDigits(s) {
		if t, err := time.Parse("200601", s); err == nil {
			return civil.DateOf(t), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= 1 && serial <= maxSerialDate {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return civil.DateOf(t), true
			}
		}
		return civil.Date{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}

	if d, ok := parseMonthName(s); ok {
		return d, true
	}
	return civil.Date{}, false
}

// parseMonthName accepts "Janvier 2024", "jan-24" and similar month labels
func parseMonthName(s string) (civil.Date, bool) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '.' || r == '_'
	})
	if len(fields) != 2 {
		return civil.Date{}, false
	}
	month, ok := monthNames[fields[0]]
	if !ok {
		return civil.Date{}, false
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return civil.Date{}, false
	}
	if year < 100 {
		year += 2000
	}
	return civil.Date{Year: year, Month: month, Day: 1}, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// columnBinding is a schema column resolved to a position in the source
type columnBinding struct {
	Column
	index int
}

// normalizer converts raw string rows into Records following a schema
type normalizer struct {
	schema      Schema
	bindings    []columnBinding
	maxWarnings int
	warnings    []domain.ParseWarning
	dropped     int
	// totalWarnings counts every warning, including those beyond maxWarnings
	totalWarnings int
}

// bindColumns resolves schema columns against a header row. Exact matches
// win over case-insensitive ones. Missing required columns are reported.
func bindColumns(schema Schema, header []string) ([]columnBinding, []string) {
	exact := make(map[string]int, len(header))
	folded := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if _, seen := exact[name]; !seen {
			exact[name] = i
		}
		lower := strings.ToLower(name)
		if _, seen := folded[lower]; !seen {
			folded[lower] = i
		}
	}

	used := make(map[int]bool)
	var bindings []columnBinding
	var missing []string
	for _, col := range schema.Columns {
		idx, ok := exact[col.Name]
		if !ok || used[idx] {
			idx, ok = folded[strings.ToLower(col.Name)]
			if ok && used[idx] {
				ok = false
			}
		}
		if !ok {
			if col.Required {
				missing = append(missing, col.Name)
			}
			continue
		}
		used[idx] = true
		bindings = append(bindings, columnBinding{Column: col, index: idx})
	}
	return bindings, missing
}

func (n *normalizer) warn(row int, column, value, reason string) {
	n.totalWarnings++
	if len(n.warnings) < n.maxWarnings {
		n.warnings = append(n.warnings, domain.ParseWarning{Row: row, Column: column, Value: value, Reason: reason})
	}
}

// record converts one data row. ok is false for rows that are entirely empty.
func (n *normalizer) record(rowNum int, row []string) (domain.Record, bool) {
	if isBlankRow(row) {
		n.dropped++
		return domain.Record{}, false
	}

	rec := domain.Record{Row: rowNum}
	texts := make(map[Target]string, len(n.bindings))
	for _, b := range n.bindings {
		var cell string
		if b.index < len(row) {
			cell = row[b.index]
		}

		switch b.Kind {
		case KindNumber:
			v, ok := ParseNumber(cell)
			if !ok {
				n.warn(rowNum, b.Name, cell, "invalid number")
			}
			setNumber(&rec, b.Target, v)
		case KindDate:
			d, ok := ParseDate(cell)
			if !ok {
				n.warn(rowNum, b.Name, cell, "invalid date")
			}
			setDate(&rec, b.Target, d)
		case KindPeriod:
			label := strings.TrimSpace(cell)
			if d, ok := ParseDate(label); ok && !d.IsZero() {
				setDate(&rec, b.Target, d)
				label = domain.MonthLabel(d)
			}
			rec.Period = label
		default:
			texts[b.Target] = strings.TrimSpace(cell)
		}
	}

	for dst, src := range n.schema.Derived {
		if texts[dst] == "" {
			texts[dst] = texts[src]
		}
	}
	for _, t := range textTargets {
		v := texts[t]
		if v == "" {
			v = n.schema.UnknownLabel
		}
		setText(&rec, t, v)
	}

	rec.UnitCost = domain.ComputeUnitCost(rec.Amount, rec.Quantity)
	return rec, true
}

var textTargets = []Target{
	TargetOrganization, TargetCategory, TargetArticle, TargetSupplier,
	TargetGroup, TargetEquipment, TargetCode, TargetStatus,
}

func setText(r *domain.Record, t Target, v string) {
	switch t {
	case TargetOrganization:
		r.Organization = v
	case TargetCategory:
		r.Category = v
	case TargetArticle:
		r.Article = v
	case TargetSupplier:
		r.Supplier = v
	case TargetGroup:
		r.Group = v
	case TargetEquipment:
		r.Equipment = v
	case TargetCode:
		r.Code = v
	case TargetStatus:
		r.Status = v
	}
}

func setNumber(r *domain.Record, t Target, v float64) {
	switch t {
	case TargetQuantity:
		r.Quantity = v
	case TargetAmount:
		r.Amount = v
	case TargetUnitPrice:
		r.UnitPrice = v
	}
}

func setDate(r *domain.Record, t Target, d civil.Date) {
	switch t {
	case TargetDate:
		r.Date = d
	case TargetPromisedDate:
		r.PromisedDate = d
	case TargetDeliveredDate:
		r.DeliveredDate = d
	}
}

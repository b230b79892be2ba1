package domain

import (
	"strings"

	"cloud.google.com/go/civil"
)

// allSentinels are selection values meaning "no restriction"
var allSentinels = []string{"all", "tous", "toutes", "*"}

// IsAll reports whether a filter value leaves its dimension unrestricted
func IsAll(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, s := range allSentinels {
		if v == s {
			return true
		}
	}
	return false
}

// Filter narrows a Dataset. Every dimension is optional.
type Filter struct {
	Organization string     `json:"organization,omitempty"`
	Category     string     `json:"category,omitempty"`
	Equipment    string     `json:"equipment,omitempty"`
	Group        string     `json:"group,omitempty"`
	Supplier     string     `json:"supplier,omitempty"`
	DateFrom     civil.Date `json:"date_from"`
	DateTo       civil.Date `json:"date_to"`
}

// HasDateRange reports whether either date bound is set
func (f Filter) HasDateRange() bool {
	return !f.DateFrom.IsZero() || !f.DateTo.IsZero()
}

// IsEmpty reports whether the filter restricts nothing
func (f Filter) IsEmpty() bool {
	return IsAll(f.Organization) && IsAll(f.Category) && IsAll(f.Equipment) &&
		IsAll(f.Group) && IsAll(f.Supplier) && !f.HasDateRange()
}

// Key returns a canonical string identifying the filter. Filters that
// select the same records produce the same key.
func (f Filter) Key() string {
	var b strings.Builder
	part := func(name, value string) {
		if IsAll(value) {
			value = ""
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(value))
		b.WriteByte(';')
	}
	date := func(name string, d civil.Date) {
		b.WriteString(name)
		b.WriteByte('=')
		if !d.IsZero() {
			b.WriteString(d.String())
		}
		b.WriteByte(';')
	}

	part("org", f.Organization)
	part("cat", f.Category)
	part("equip", strings.ToLower(f.Equipment))
	part("group", f.Group)
	part("supplier", f.Supplier)
	date("from", f.DateFrom)
	date("to", f.DateTo)
	return b.String()
}

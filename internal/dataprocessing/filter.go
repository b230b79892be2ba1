package dataprocessing

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"supplypulse/pkg/contracts/domain"
)

// Apply returns the records of ds matching every set dimension of f, in
// their original order. ds is never modified; applying the same filter
// to the result again yields the same records.
func Apply(ds *domain.Dataset, f domain.Filter) *domain.Dataset {
	if ds == nil {
		return nil
	}
	if f.IsEmpty() {
		return ds.Derive(ds.Records())
	}

	match := matcher(f)
	return ds.Derive(lo.Filter(ds.Records(), func(r domain.Record, _ int) bool {
		return match(r)
	}))
}

func matcher(f domain.Filter) func(domain.Record) bool {
	type check func(domain.Record) bool
	var checks []check

	equal := func(want string, get func(domain.Record) string) {
		if domain.IsAll(want) {
			return
		}
		want = strings.TrimSpace(want)
		checks = append(checks, func(r domain.Record) bool { return get(r) == want })
	}

	equal(f.Organization, func(r domain.Record) string { return r.Organization })
	equal(f.Category, func(r domain.Record) string { return r.Category })
	equal(f.Group, func(r domain.Record) string { return r.Group })
	equal(f.Supplier, func(r domain.Record) string { return r.Supplier })

	if !domain.IsAll(f.Equipment) {
		needle := strings.ToLower(strings.TrimSpace(f.Equipment))
		checks = append(checks, func(r domain.Record) bool {
			return strings.Contains(strings.ToLower(r.Equipment), needle)
		})
	}

	if f.HasDateRange() {
		from, to := f.DateFrom, f.DateTo
		checks = append(checks, func(r domain.Record) bool {
			if !r.HasDate() {
				return false
			}
			if !from.IsZero() && r.Date.Before(from) {
				return false
			}
			if !to.IsZero() && r.Date.After(to) {
				return false
			}
			return true
		})
	}

	return func(r domain.Record) bool {
		for _, c := range checks {
			if !c(r) {
				return false
			}
		}
		return true
	}
}

// Choices lists the selectable values of each filter dimension
type Choices struct {
	Organizations []string `json:"organizations"`
	Categories    []string `json:"categories"`
	Groups        []string `json:"groups"`
	Suppliers     []string `json:"suppliers"`
	Equipment     []string `json:"equipment"`
	FirstDate     string   `json:"first_date,omitempty"`
	LastDate      string   `json:"last_date,omitempty"`
}

// FilterChoices collects sorted distinct values of the filterable fields
func FilterChoices(ds *domain.Dataset) Choices {
	records := ds.Records()
	distinct := func(get func(domain.Record) string) []string {
		values := lo.Uniq(lo.Map(records, func(r domain.Record, _ int) string { return get(r) }))
		slices.Sort(values)
		return values
	}

	c := Choices{
		Organizations: distinct(func(r domain.Record) string { return r.Organization }),
		Categories:    distinct(func(r domain.Record) string { return r.Category }),
		Groups:        distinct(func(r domain.Record) string { return r.Group }),
		Suppliers:     distinct(func(r domain.Record) string { return r.Supplier }),
		Equipment:     distinct(func(r domain.Record) string { return r.Equipment }),
	}

	dated := lo.Filter(records, func(r domain.Record, _ int) bool { return r.HasDate() })
	if len(dated) > 0 {
		first := lo.MinBy(dated, func(a, b domain.Record) bool { return a.Date.Before(b.Date) })
		last := lo.MaxBy(dated, func(a, b domain.Record) bool { return a.Date.After(b.Date) })
		c.FirstDate = first.Date.String()
		c.LastDate = last.Date.String()
	}
	return c
}

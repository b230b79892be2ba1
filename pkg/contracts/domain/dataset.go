package domain

import (
	"iter"
	"slices"
	"time"
)

// DatasetKind identifies one of the supported source layouts
type DatasetKind string

const (
	KindConsumption DatasetKind = "consumption"
	KindProcurement DatasetKind = "procurement"
	KindEquipment   DatasetKind = "equipment"
	KindStock       DatasetKind = "stock"
)

// Kinds lists every supported dataset kind in display order
var Kinds = []DatasetKind{KindConsumption, KindProcurement, KindEquipment, KindStock}

// Valid reports whether k is a supported dataset kind
func (k DatasetKind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Dataset is an ordered, read-only collection of Records sharing a schema.
// Filtering produces new Datasets; a loaded Dataset is never modified and
// may be shared between sessions.
type Dataset struct {
	kind        DatasetKind
	source      string
	fingerprint string
	loadedAt    time.Time
	records     []Record
	warnings    []ParseWarning
}

// NewDataset creates a Dataset that takes ownership of records and warnings
func NewDataset(kind DatasetKind, source, fingerprint string, records []Record, warnings []ParseWarning) *Dataset {
	return &Dataset{
		kind:        kind,
		source:      source,
		fingerprint: fingerprint,
		loadedAt:    time.Now(),
		records:     records,
		warnings:    warnings,
	}
}

// Derive returns a Dataset with the same identity holding a different record set
func (d *Dataset) Derive(records []Record) *Dataset {
	return &Dataset{
		kind:        d.kind,
		source:      d.source,
		fingerprint: d.fingerprint,
		loadedAt:    d.loadedAt,
		records:     records,
	}
}

func (d *Dataset) Kind() DatasetKind   { return d.kind }
func (d *Dataset) Source() string      { return d.source }
func (d *Dataset) Fingerprint() string { return d.fingerprint }
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Len returns the number of records; a nil Dataset is empty
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a copy of the records
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

// All iterates over the records in order without copying
func (d *Dataset) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		if d == nil {
			return
		}
		for i, r := range d.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Warnings returns the parse warnings collected while loading
func (d *Dataset) Warnings() []ParseWarning {
	if d == nil {
		return nil
	}
	return slices.Clone(d.warnings)
}

// TotalAmount sums Amount over every record
func (d *Dataset) TotalAmount() float64 {
	var total float64
	for _, r := range d.All() {
		total += r.Amount
	}
	return total
}

// TotalQuantity sums Quantity over every record
func (d *Dataset) TotalQuantity() float64 {
	var total float64
	for _, r := range d.All() {
		total += r.Quantity
	}
	return total
}

package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns absent from a source. Ingestion
// aborts when it occurs; no partial dataset is produced.
type SchemaError struct {
	Kind    DatasetKind `json:"kind"`
	Sheet   string      `json:"sheet,omitempty"`
	Missing []string    `json:"missing"`
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s schema: missing required columns: %s", e.Kind, strings.Join(e.Missing, ", "))
}

// SourceError reports a source that could not be opened or read
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ParseWarning records a cell that failed numeric or date parsing and was
// replaced with its default value.
type ParseWarning struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("row %d, column %s: %s (%q)", w.Row, w.Column, w.Reason, w.Value)
}

// InsufficientDataError reports an item skipped because its history is too short
type InsufficientDataError struct {
	Item    string
	Records int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d records", e.Records)
}

// ComputationFailure reports a model that could not be fitted for one item
type ComputationFailure struct {
	Item  string
	Cause error
}

func (e *ComputationFailure) Error() string {
	return fmt.Sprintf("model failure: %v", e.Cause)
}

func (e *ComputationFailure) Unwrap() error {
	return e.Cause
}

// Package api contains the request and response contracts of the SupplyPulse HTTP API.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"supplypulse/pkg/contracts/domain"
)

// DateLayout is the only accepted date format in requests
const DateLayout = "2006-01-02"

// DateRangeRequest represents a date range in requests
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Dates parses the bounds; an empty bound is the zero date
func (r DateRangeRequest) Dates() (from, to civil.Date, err error) {
	if r.From != "" {
		if from, err = civil.ParseDate(r.From); err != nil {
			return from, to, fmt.Errorf("from: %w", err)
		}
	}
	if r.To != "" {
		if to, err = civil.ParseDate(r.To); err != nil {
			return from, to, fmt.Errorf("to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("to %s is before from %s", r.To, r.From)
	}
	return from, to, nil
}

// Dataset API Requests

// DatasetRequest identifies a dataset kind from the URL path
type DatasetRequest struct {
	Kind string `json:"kind" query:"kind" validate:"required,dataset_kind"`
}

// UploadRequest describes a workbook upload
type UploadRequest struct {
	Kind     string `json:"kind" validate:"required,dataset_kind"`
	FileName string `json:"file_name" validate:"required,max=255,filename"`
}

// Session API Requests

// SessionRequest identifies a session from the URL path
type SessionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
}

// FilterRequest carries the optional filter dimensions
type FilterRequest struct {
	DateRangeRequest

	Organization string `json:"organization" query:"organization" validate:"max=200"`
	Category     string `json:"category" query:"category" validate:"max=200"`
	Equipment    string `json:"equipment" query:"equipment" validate:"max=200"`
	Group        string `json:"group" query:"group" validate:"max=200"`
	Supplier     string `json:"supplier" query:"supplier" validate:"max=200"`
}

// Filter converts the request into a domain filter
func (r FilterRequest) Filter() (domain.Filter, error) {
	from, to, err := r.Dates()
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{
		Organization: strings.TrimSpace(r.Organization),
		Category:     strings.TrimSpace(r.Category),
		Equipment:    strings.TrimSpace(r.Equipment),
		Group:        strings.TrimSpace(r.Group),
		Supplier:     strings.TrimSpace(r.Supplier),
		DateFrom:     from,
		DateTo:       to,
	}, nil
}

// DashboardRequest carries the filters and list size of a dashboard query
type DashboardRequest struct {
	SessionRequest
	DatasetRequest
	FilterRequest

	Top int `json:"top" query:"top" validate:"omitempty,min=1,max=50"`
}

// ExportRequest is a dashboard query rendered to a file format
type ExportRequest struct {
	DashboardRequest

	Format string `json:"format" query:"format" validate:"required,oneof=csv xlsx html"`
	Table  string `json:"table" query:"table" validate:"omitempty,max=64"`
}

// Report CLI Requests

// BuildRequest is a one-shot report build from a local workbook
type BuildRequest struct {
	DatasetRequest
	FilterRequest

	Input   string `json:"input" validate:"required"`
	Out     string `json:"out"`
	Formats string `json:"formats" validate:"required"`
	Top     int    `json:"top" validate:"omitempty,min=1,max=50"`
}

package http

import (
	"context"
	"io"

	"supplypulse/internal/dataprocessing"
	"supplypulse/internal/services"
	"supplypulse/pkg/contracts/domain"
)

// AnalysisServiceInterface is the part of the analysis service the handlers use
type AnalysisServiceInterface interface {
	Dashboard(ctx context.Context, sessionID string, kind domain.DatasetKind, filter domain.Filter, topN int) (*services.Result, bool, error)
	Choices(ctx context.Context, kind domain.DatasetKind) (dataprocessing.Choices, error)
	Reload(ctx context.Context, kind domain.DatasetKind) error
	Upload(ctx context.Context, kind domain.DatasetKind, fileName string, r io.Reader) (*services.UploadResult, error)
}

// SessionStoreInterface opens and closes analysis sessions
type SessionStoreInterface interface {
	Create(ctx context.Context) (*services.Session, error)
	Delete(ctx context.Context, id string) error
}

// DatasetCatalogInterface describes the configured dataset sources
type DatasetCatalogInterface interface {
	Sources() []services.SourceInfo
	AllowedExtension(name string) bool
	UploadExtensions() []string
}

var (
	_ AnalysisServiceInterface = (*services.AnalysisService)(nil)
	_ SessionStoreInterface    = (*services.SessionStore)(nil)
	_ DatasetCatalogInterface  = (*services.DatasetService)(nil)
)

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"supplypulse/internal/config"
	"supplypulse/internal/dataprocessing"
	"supplypulse/internal/files"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// SheetsLoader fetches a dataset from a Google Sheets range
type SheetsLoader interface {
	Identity(spreadsheetID, readRange string) string
	Load(ctx context.Context, kind domain.DatasetKind, spreadsheetID, readRange string) (*domain.Dataset, error)
}

// Source types reported by SourceInfo
const (
	SourceFile    = "file"
	SourceArchive = "archive"
	SourceSheets  = "sheets"
	SourceUpload  = "upload"
)

// SourceInfo describes where a dataset kind is read from
type SourceInfo struct {
	Kind       domain.DatasetKind `json:"kind"`
	Type       string             `json:"type,omitempty"`
	Location   string             `json:"location,omitempty"`
	Sheet      string             `json:"sheet,omitempty"`
	Configured bool               `json:"configured"`
	Available  bool               `json:"available"`
}

// UploadResult summarizes an accepted upload
type UploadResult struct {
	Kind          domain.DatasetKind `json:"kind"`
	FileName      string             `json:"file_name"`
	Path          string             `json:"path"`
	Records       int                `json:"records"`
	ParseWarnings int                `json:"parse_warnings"`
	Fingerprint   string             `json:"fingerprint"`
}

// DatasetService resolves each dataset kind to its current source and loads
// it through the shared DatasetCache. Uploaded workbooks replace the
// configured source of their kind until the process restarts.
type DatasetService struct {
	mu        sync.RWMutex
	cfg       config.DatasetsConfig
	upload    config.UploadConfig
	paths     *config.Paths
	files     *files.Manager
	parsers   map[domain.DatasetKind]*dataprocessing.Parser
	cache     *dataprocessing.DatasetCache
	sheets    SheetsLoader
	overrides map[domain.DatasetKind]string
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// NewDatasetService creates the dataset service. sheets may be nil when no
// Google Sheets source is configured; metrics may be nil.
func NewDatasetService(cfg *config.Config, paths *config.Paths, sheets SheetsLoader, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}

	s := &DatasetService{
		cfg:       cfg.Datasets,
		upload:    cfg.Upload,
		paths:     paths,
		files:     files.NewManager(paths, logger),
		parsers:   make(map[domain.DatasetKind]*dataprocessing.Parser, len(domain.Kinds)),
		sheets:    sheets,
		overrides: make(map[domain.DatasetKind]string),
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "dataset_service")),
	}
	for _, kind := range domain.Kinds {
		opts := dataprocessing.DefaultParserOptions()
		opts.UnknownLabel = cfg.Analytics.UnknownLabel
		if src, ok := cfg.Datasets.Source(kind); ok {
			opts.Sheet = src.Sheet
		}
		s.parsers[kind] = dataprocessing.NewParser(opts, logger)
	}
	s.cache = dataprocessing.NewDatasetCache(s, logger)
	return s
}

// ParseFile parses a workbook or workbook archive with the parser of its kind
func (s *DatasetService) ParseFile(ctx context.Context, path string, kind domain.DatasetKind) (*domain.Dataset, error) {
	parser, err := s.parser(kind)
	if err != nil {
		return nil, err
	}
	if dataprocessing.IsArchive(path) {
		return parser.ParseArchiveFile(ctx, path, kind)
	}
	return parser.ParseFile(ctx, path, kind)
}

func (s *DatasetService) parser(kind domain.DatasetKind) (*dataprocessing.Parser, error) {
	p, ok := s.parsers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, kind)
	}
	return p, nil
}

// Sources lists the source of every dataset kind
func (s *DatasetService) Sources() []SourceInfo {
	out := make([]SourceInfo, 0, len(domain.Kinds))
	for _, kind := range domain.Kinds {
		out = append(out, s.source(kind))
	}
	return out
}

func (s *DatasetService) source(kind domain.DatasetKind) SourceInfo {
	info := SourceInfo{Kind: kind}

	s.mu.RLock()
	override, uploaded := s.overrides[kind]
	s.mu.RUnlock()
	if uploaded {
		info.Type = SourceUpload
		info.Location = override
		info.Configured = true
		info.Available = config.FileExists(override)
		return info
	}

	src, ok := s.cfg.Source(kind)
	if !ok || !src.Configured() {
		return info
	}
	info.Configured = true
	info.Sheet = src.Sheet
	if src.IsSheets() {
		info.Type = SourceSheets
		info.Location = src.SpreadsheetID + "!" + src.Range
		info.Available = s.sheets != nil
		return info
	}

	info.Type = SourceFile
	if dataprocessing.IsArchive(src.File) {
		info.Type = SourceArchive
	}
	info.Location = s.resolve(src.File)
	info.Available = config.FileExists(info.Location)
	return info
}

func (s *DatasetService) resolve(path string) string {
	if s.paths == nil {
		return path
	}
	return s.paths.Resolve(path)
}

// Load returns the normalized dataset of a kind, parsing its source only
// when the cached copy is stale.
func (s *DatasetService) Load(ctx context.Context, kind domain.DatasetKind) (*domain.Dataset, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, kind)
	}

	info := s.source(kind)
	if !info.Configured {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotConfigured, kind)
	}

	var (
		ds  *domain.Dataset
		hit bool
		err error
	)
	if info.Type == SourceSheets {
		ds, hit, err = s.loadSheets(ctx, kind)
	} else {
		ds, hit, err = s.cache.LoadFile(ctx, kind, info.Location)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Dataset load failed",
			slog.String("kind", string(kind)),
			slog.String("source", info.Location),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.observe(ctx, kind, ds, hit)
	return ds, nil
}

// LoadPath loads a workbook or archive outside the configured sources
func (s *DatasetService) LoadPath(ctx context.Context, kind domain.DatasetKind, path string) (*domain.Dataset, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, kind)
	}
	ds, hit, err := s.cache.LoadFile(ctx, kind, path)
	if err != nil {
		return nil, err
	}
	s.observe(ctx, kind, ds, hit)
	return ds, nil
}

func (s *DatasetService) loadSheets(ctx context.Context, kind domain.DatasetKind) (*domain.Dataset, bool, error) {
	if s.sheets == nil {
		return nil, false, fmt.Errorf("%w: no google sheets client for %s", ErrSourceNotConfigured, kind)
	}
	src, _ := s.cfg.Source(kind)
	identity := s.sheets.Identity(src.SpreadsheetID, src.Range)

	// Sheets carry no cheap version stamp: the cached copy is kept until reload.
	return s.cache.Remember(ctx, kind, identity, "", func(ctx context.Context) (*domain.Dataset, error) {
		ctx, cancel := context.WithTimeout(ctx, config.SheetsFetchTimeout)
		defer cancel()
		return s.sheets.Load(ctx, kind, src.SpreadsheetID, src.Range)
	})
}

func (s *DatasetService) observe(ctx context.Context, kind domain.DatasetKind, ds *domain.Dataset, hit bool) {
	infrastructure.RecordCacheLookup(ctx, s.metrics, "dataset", hit)
	if hit {
		return
	}
	attrs := metric.WithAttributes(attribute.String("dataset", string(kind)))
	s.metrics.DatasetsLoaded.Add(ctx, 1, attrs)
	s.metrics.DatasetRecords.Add(ctx, int64(ds.Len()), attrs)
	s.metrics.ParseWarnings.Add(ctx, int64(len(ds.Warnings())), attrs)
}

// Reload drops the cached dataset of a kind so the next load re-reads it
func (s *DatasetService) Reload(ctx context.Context, kind domain.DatasetKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDataset, kind)
	}
	removed := s.cache.Invalidate(kind)
	s.logger.InfoContext(ctx, "Dataset cache invalidated",
		slog.String("kind", string(kind)),
		slog.Int("entries", removed))
	return nil
}

// AllowedExtension reports whether uploads may use the extension of name
func (s *DatasetService) AllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext != "" && slices.ContainsFunc(s.upload.AllowedExtensions, func(allowed string) bool {
		return strings.EqualFold(allowed, ext)
	})
}

// UploadExtensions lists the extensions accepted for uploads
func (s *DatasetService) UploadExtensions() []string {
	return slices.Clone(s.upload.AllowedExtensions)
}

// Upload validates a workbook or archive against the schema of kind and,
// when it parses, stores it as the new source of that kind. A rejected
// upload leaves the previous source untouched.
func (s *DatasetService) Upload(ctx context.Context, kind domain.DatasetKind, fileName string, r io.Reader) (*UploadResult, error) {
	parser, err := s.parser(kind)
	if err != nil {
		return nil, err
	}
	if !s.AllowedExtension(fileName) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(fileName))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	dest := s.uploadPath(kind, fileName)

	var ds *domain.Dataset
	if dataprocessing.IsArchive(fileName) {
		ds, err = parser.ParseArchive(ctx, dest, kind, data)
	} else {
		ds, err = parser.ParseBytes(ctx, dest, kind, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Upload rejected",
			slog.String("kind", string(kind)),
			slog.String("file_name", fileName),
			slog.String("error", err.Error()))
		return nil, err
	}

	if _, err := s.files.WriteFile(dest, data); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	stamp, err := dataprocessing.FileStamp(dest)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.overrides[kind] = dest
	s.mu.Unlock()

	s.cache.Invalidate(kind)
	if _, _, err := s.cache.Remember(ctx, kind, dest, stamp, func(context.Context) (*domain.Dataset, error) {
		return ds, nil
	}); err != nil {
		return nil, err
	}
	s.observe(ctx, kind, ds, false)

	s.logger.InfoContext(ctx, "Upload accepted",
		slog.String("kind", string(kind)),
		slog.String("file_name", fileName),
		slog.String("path", dest),
		slog.Int("records", ds.Len()),
		slog.Int("parse_warnings", len(ds.Warnings())))

	return &UploadResult{
		Kind:          kind,
		FileName:      fileName,
		Path:          dest,
		Records:       ds.Len(),
		ParseWarnings: len(ds.Warnings()),
		Fingerprint:   ds.Fingerprint(),
	}, nil
}

func (s *DatasetService) uploadPath(kind domain.DatasetKind, fileName string) string {
	if s.paths != nil {
		return s.paths.GetUploadPath(kind, fileName)
	}
	return filepath.Join(os.TempDir(), "supplypulse-uploads", string(kind)+strings.ToLower(filepath.Ext(fileName)))
}

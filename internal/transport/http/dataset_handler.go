package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"supplypulse/internal/dataprocessing"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/middleware"
	api "supplypulse/pkg/contracts/api/v1"
	"supplypulse/pkg/contracts/domain"
)

// UploadField is the multipart field carrying the workbook
const UploadField = "file"

type ctxKey int

const kindKey ctxKey = iota

// DatasetHandler serves the dataset catalog, uploads and reloads
type DatasetHandler struct {
	analysis     AnalysisServiceInterface
	catalog      DatasetCatalogInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	maxBytes     int64
	logger       *slog.Logger
}

// NewDatasetHandler creates a dataset handler. maxBytes bounds upload bodies.
func NewDatasetHandler(analysis AnalysisServiceInterface, catalog DatasetCatalogInterface, v *middleware.Validator, errorHandler *apierrors.ErrorHandler, maxBytes int64, logger *slog.Logger) *DatasetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetHandler{
		analysis:     analysis,
		catalog:      catalog,
		validator:    v,
		errorHandler: errorHandler,
		maxBytes:     maxBytes,
		logger:       logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDatasets)

	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.KindCtx)
		r.Get("/choices", h.Choices)
		r.Post("/reload", h.Reload)
		r.With(middleware.ContentTypeValidator(h.errorHandler, h.logger, "multipart/form-data")).
			Post("/upload", h.Upload)
	})
	return r
}

// KindCtx validates the {kind} URL parameter and stores it in the context
func (h *DatasetHandler) KindCtx(next http.Handler) http.Handler {
	return kindCtx(h.validator, h.errorHandler, next)
}

func kindCtx(v *middleware.Validator, eh *apierrors.ErrorHandler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := api.DatasetRequest{Kind: chi.URLParam(r, "kind")}
		if err := v.Struct(req); err != nil {
			eh.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), kindKey, domain.DatasetKind(req.Kind))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func kindFrom(ctx context.Context) domain.DatasetKind {
	kind, _ := ctx.Value(kindKey).(domain.DatasetKind)
	return kind
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	sources := h.catalog.Sources()
	render.JSON(w, r, map[string]interface{}{
		"datasets": sources,
		"count":    len(sources),
	})
}

// Choices handles GET /api/datasets/{kind}/choices
func (h *DatasetHandler) Choices(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r.Context())
	choices, err := h.analysis.Choices(r.Context(), kind)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, struct {
		Kind domain.DatasetKind `json:"kind"`
		dataprocessing.Choices
	}{kind, choices})
}

// Reload handles POST /api/datasets/{kind}/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r.Context())
	if err := h.analysis.Reload(r.Context(), kind); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ReloadResponse{Kind: kind, ReloadedAt: time.Now().UTC()})
}

// Upload handles POST /api/datasets/{kind}/upload. The body is a multipart
// form whose "file" part holds the workbook or zip archive.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := kindFrom(ctx)

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	part, err := filePart(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer part.Close()

	req := api.UploadRequest{Kind: string(kind), FileName: part.FileName()}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if !h.catalog.AllowedExtension(req.FileName) {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFileType(
			strings.ToLower(filepath.Ext(req.FileName)), h.catalog.UploadExtensions()))
		return
	}

	h.logger.InfoContext(ctx, "Upload received",
		slog.String("kind", req.Kind),
		slog.String("file_name", req.FileName))

	res, err := h.analysis.Upload(ctx, kind, req.FileName, part)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}

// filePart returns the first multipart part named UploadField
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apierrors.ErrValidation(UploadField, "a file part is required")
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return nil, err
			}
			return nil, apierrors.InvalidRequestWithError(err)
		}
		if part.FormName() == UploadField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

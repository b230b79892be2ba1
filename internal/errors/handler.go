package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeUnsupportedMedia = "/errors/unsupported-media-type"
)

// Domain-specific error types
const (
	TypeSessionNotFound  = "/errors/session/not-found"
	TypeSessionLimit     = "/errors/session/limit"
	TypeDatasetUnknown   = "/errors/dataset/unknown"
	TypeDataNotFound     = "/errors/data/not-found"
	TypeDataUnconfigured = "/errors/data/not-configured"
	TypeDataCorrupted    = "/errors/data/corrupted"
	TypeDataSchema       = "/errors/data/schema"
)

// rule maps a sentinel error to a problem type
type rule struct {
	target error
	status int
	ptype  string
	title  string
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool

	mu    sync.RWMutex
	rules []rule
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// Register maps errors matching target (via errors.Is) to a status and
// problem type. Rules are checked in registration order.
func (h *ErrorHandler) Register(target error, status int, problemType, title string) *ErrorHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rules = append(h.rules, rule{target: target, status: status, ptype: problemType, title: title})
	return h
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	attrs := []slog.Attr{
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if problem.Status >= http.StatusInternalServerError {
		h.logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
		infrastructure.RecordError(ctx, err)
		if h.includeStack {
			problem.WithExtension("stack", getStackTrace())
		}
	} else {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "request rejected", attrs...)
	}

	problem.Write(w)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			path,
		)
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return h.apiErrorToProblem(PayloadTooLarge(maxBytes.Limit), r).
			WithExtension("max_bytes", maxBytes.Limit)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			"One or more parameters are invalid",
			path,
		).WithExtension("errors", FieldErrors(fieldErrs))
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var schemaErr *domain.SchemaError
	if errors.As(err, &schemaErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeDataSchema,
			"Schema Mismatch",
			schemaErr.Error(),
			path,
		).WithExtension("kind", schemaErr.Kind).
			WithExtension("missing", schemaErr.Missing)
	}

	var sourceErr *domain.SourceError
	if errors.As(err, &sourceErr) {
		if errors.Is(err, fs.ErrNotExist) {
			return NewProblemDetails(http.StatusNotFound, TypeDataNotFound, "Data Source Not Found", err.Error(), path)
		}
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeDataCorrupted, "Unreadable Data Source", err.Error(), path)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, rl := range h.rules {
		if errors.Is(err, rl.target) {
			return NewProblemDetails(rl.status, rl.ptype, rl.title, err.Error(), path)
		}
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		path,
	)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case ErrValidationFailed.ErrorCode, ErrInvalidRequest.ErrorCode, "MISSING_CONTENT_TYPE":
		problemType = TypeValidation
	case ErrPayloadTooLarge.ErrorCode:
		problemType = TypePayloadTooLarge
	case ErrUnsupportedFileType.ErrorCode:
		problemType = TypeUnsupportedMedia
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		if v, ok := apiErr.Details.(ValidationErrors); ok {
			problem.WithExtension("errors", v.Errors)
		} else {
			problem.WithExtension("details", apiErr.Details)
		}
	}
	return problem
}

// FieldErrors turns validator errors into field messages
func FieldErrors(errs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, ValidationError{Field: fe.Field(), Message: FormatFieldError(fe)})
	}
	return out
}

// FormatFieldError renders one validator failure as a sentence
func FormatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", field, param)
	case "dataset_kind":
		return fmt.Sprintf("%s must be one of: consumption, procurement, equipment, stock", field)
	case "filename":
		return fmt.Sprintf("%s must be a plain file name", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	h.logger.ErrorContext(ctx, "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}
	problem.Write(w)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context())).Write(w)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context())).Write(w)
}

// JSON helper for consistent JSON responses
func (h *ErrorHandler) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

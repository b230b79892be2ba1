package middleware

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "supplypulse/internal/errors"
	"supplypulse/pkg/contracts/domain"
)

// Validator validates request contracts using struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the application's custom tags
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterValidation("dataset_kind", isDatasetKind)
	v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates v. The returned error is a validator.ValidationErrors
// which the error handler renders as a 400 with per-field messages.
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// isDatasetKind accepts the four dataset kinds
func isDatasetKind(fl validator.FieldLevel) bool {
	return domain.DatasetKind(fl.Field().String()).Valid()
}

// isValidFilename rejects names carrying a directory component
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

// IntParam parses an optional integer query parameter; absent means 0
func IntParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a valid integer", name))
	}
	return n, nil
}

// ContentTypeValidator rejects request bodies whose media type is not listed
func ContentTypeValidator(handler *apierrors.ErrorHandler, logger *slog.Logger, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				handler.HandleError(w, r, apierrors.NewWithDetails(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"A valid Content-Type header is required",
					map[string]interface{}{"allowed": contentTypes},
				))
				return
			}

			for _, allowed := range contentTypes {
				if strings.EqualFold(mediaType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if logger != nil {
				logger.DebugContext(r.Context(), "unsupported content type",
					slog.String("content_type", mediaType),
					slog.String("path", r.URL.Path),
				)
			}
			handler.HandleError(w, r, apierrors.NewWithDetails(
				apierrors.ErrUnsupportedFileType.StatusCode,
				apierrors.ErrUnsupportedFileType.ErrorCode,
				"Unsupported content type",
				map[string]interface{}{
					"content_type": mediaType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

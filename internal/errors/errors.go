package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// withDetails copies a predefined error, replacing message and details
func (e *APIError) withDetails(message string, details interface{}) *APIError {
	if message == "" {
		message = e.Message
	}
	return NewWithDetails(e.StatusCode, e.ErrorCode, message, details)
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")

	// 413 / 415
	ErrPayloadTooLarge     = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds maximum allowed size")
	ErrUnsupportedFileType = New(http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE", "Unsupported file type")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return ErrInvalidRequest.withDetails("", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return ErrValidationFailed.withDetails("", ValidationErrors{
		Errors: []ValidationError{{Field: field, Message: message}},
	})
}

// PayloadTooLarge reports a body cut off at limit bytes
func PayloadTooLarge(limit int64) *APIError {
	return ErrPayloadTooLarge.withDetails(
		fmt.Sprintf("The request body exceeds the maximum allowed size of %d bytes", limit),
		nil,
	)
}

// UnsupportedFileType rejects an upload whose extension is not accepted
func UnsupportedFileType(ext string, allowed []string) *APIError {
	return ErrUnsupportedFileType.withDetails(
		fmt.Sprintf("Files with extension %q are not accepted", ext),
		map[string]interface{}{"extension": ext, "allowed": allowed},
	)
}

package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in API error bodies.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidReference   = "INVALID_REFERENCE"
	CodeMediaUpload        = "MEDIA_UPLOAD_ERROR"
	CodeMediaUploadTimeout = "MEDIA_UPLOAD_TIMEOUT"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeHasDependents      = "HAS_DEPENDENTS"
	CodeStore              = "STORE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code,omitempty"`
	Details []FieldError `json:"details,omitempty"`
	Count   *int64       `json:"count,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
	Fields  []FieldError
	// Count carries the number of dependent records for HAS_DEPENDENTS.
	Count int64
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string, fields ...FieldError) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInvalidReferenceError(resource string, ref string) *AppError {
	return &AppError{
		Code:    CodeInvalidReference,
		Message: fmt.Sprintf("%s %q does not exist", resource, ref),
	}
}

func NewMediaUploadError(err error) *AppError {
	return &AppError{
		Code:    CodeMediaUpload,
		Message: "Failed to upload image",
		Err:     err,
	}
}

func NewMediaUploadTimeoutError(err error) *AppError {
	return &AppError{
		Code:    CodeMediaUploadTimeout,
		Message: "Image upload timed out",
		Err:     err,
	}
}

func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Err:     err,
	}
}

// NewDependentsError rejects removal of a record that other records still reference.
func NewDependentsError(resource string, count int64) *AppError {
	return &AppError{
		Code:    CodeHasDependents,
		Message: fmt.Sprintf("Cannot delete %s with %d associated software", resource, count),
		Count:   count,
	}
}

func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    CodeStore,
		Message: "Database operation failed",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// IsConflict reports whether the error is a uniqueness or dependents conflict.
func (e *AppError) IsConflict() bool {
	return e.Code == CodeConflict || e.Code == CodeHasDependents
}

// RespondWithError creates a standardized error response. Wrapped causes are
// never echoed to clients.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Fields,
		}
		if appErr.Code == CodeHasDependents {
			count := appErr.Count
			response.Count = &count
		}
	} else {
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}

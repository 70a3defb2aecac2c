package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"
	ErrorTypeSegmentationEmpty   ErrorType = "segmentation_empty"
	ErrorTypeStreetViewRejected  ErrorType = "streetview_rejected"
	ErrorTypeAcquisitionFailure  ErrorType = "acquisition_failure"
	ErrorTypeStorage             ErrorType = "storage"
	ErrorTypeClassification      ErrorType = "classification"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewProviderUnavailableError marks a network failure or non-success provider response.
func NewProviderUnavailableError(message string, cause error) *AppError {
	return newError(ErrorTypeProviderUnavailable, http.StatusBadGateway, message, cause)
}

// NewSegmentationEmptyError marks a roof mask that refined to nothing.
func NewSegmentationEmptyError(message string) *AppError {
	return newError(ErrorTypeSegmentationEmpty, http.StatusUnprocessableEntity, message, nil)
}

// NewStreetViewRejectedError marks a street-level candidate excluded from the result set.
func NewStreetViewRejectedError(message string, cause error) *AppError {
	return newError(ErrorTypeStreetViewRejected, http.StatusUnprocessableEntity, message, cause)
}

// NewAcquisitionError is the only pipeline failure surfaced to callers.
func NewAcquisitionError(message string, cause error) *AppError {
	return newError(ErrorTypeAcquisitionFailure, http.StatusBadGateway, message, cause)
}

// NewStorageError creates a blob storage error
func NewStorageError(message string, cause error) *AppError {
	return newError(ErrorTypeStorage, http.StatusBadGateway, message, cause)
}

// NewClassificationError creates a classifier error
func NewClassificationError(message string, cause error) *AppError {
	return newError(ErrorTypeClassification, http.StatusBadGateway, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// IsType checks if the error chain carries an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

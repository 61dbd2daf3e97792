package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeGraphValidation ErrorType = "GRAPH_VALIDATION"
	ErrorTypeRange           ErrorType = "RANGE"
	ErrorTypeUnknownRegion   ErrorType = "UNKNOWN_REGION"
	ErrorTypeMappingData     ErrorType = "MAPPING_DATA"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application.
// Field carries the offending field path for validation errors
// (e.g. "regions[3].activityLevel") so ingestion failures can be
// reported precisely to the caller.
type AppError struct {
	Type    ErrorType
	Message string
	Field   string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Type, e.Field, e.Message, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Field, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewGraphValidationError creates a graph validation error
func NewGraphValidationError(message string) error {
	return &AppError{
		Type:    ErrorTypeGraphValidation,
		Message: message,
	}
}

// NewFieldValidationError creates a graph validation error pointing at a payload field
func NewFieldValidationError(field, message string) error {
	return &AppError{
		Type:    ErrorTypeGraphValidation,
		Message: message,
		Field:   field,
	}
}

// NewRangeError creates a range error for an out-of-bounds value
func NewRangeError(field string, value float64) error {
	return &AppError{
		Type:    ErrorTypeRange,
		Message: fmt.Sprintf("value %g is outside [0, 1]", value),
		Field:   field,
	}
}

// NewUnknownRegionError creates an error for an operation referencing a nonexistent region
func NewUnknownRegionError(regionID string) error {
	return &AppError{
		Type:    ErrorTypeUnknownRegion,
		Message: fmt.Sprintf("region %q does not exist in the current graph", regionID),
	}
}

// NewMappingDataError creates an error for a malformed clinical mapping entry
func NewMappingDataError(message string) error {
	return &AppError{
		Type:    ErrorTypeMappingData,
		Message: message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: resource + " not found",
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Field:   appErr.Field,
			Err:     appErr.Err,
		}
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsGraphValidation checks if an error is a graph validation error
func IsGraphValidation(err error) bool {
	return isType(err, ErrorTypeGraphValidation)
}

// IsRange checks if an error is a range error
func IsRange(err error) bool {
	return isType(err, ErrorTypeRange)
}

// IsUnknownRegion checks if an error is an unknown region error
func IsUnknownRegion(err error) bool {
	return isType(err, ErrorTypeUnknownRegion)
}

// IsMappingData checks if an error is a mapping data error
func IsMappingData(err error) bool {
	return isType(err, ErrorTypeMappingData)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMissingSource ErrorType = "MISSING_SOURCE"
	ErrTypeSchema        ErrorType = "SCHEMA"
	ErrTypeTypeCoercion  ErrorType = "TYPE_COERCION"
	ErrTypeIO            ErrorType = "IO"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeValidation    ErrorType = "VALIDATION"
)

// Sentinels for errors.Is. An *AppError matches the sentinel of its Type.
var (
	ErrMissingSource = &AppError{Type: ErrTypeMissingSource, Message: "source table not found"}
	ErrSchema        = &AppError{Type: ErrTypeSchema, Message: "schema mismatch"}
	ErrTypeCoercion  = &AppError{Type: ErrTypeTypeCoercion, Message: "value cannot be coerced"}
	ErrIO            = &AppError{Type: ErrTypeIO, Message: "output write failed"}
	ErrConfig        = &AppError{Type: ErrTypeConfig, Message: "invalid configuration"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewMissingSourceError reports an absent input table file.
func NewMissingSourceError(table, path string, cause error) *AppError {
	return NewAppError(ErrTypeMissingSource, fmt.Sprintf("source table %q not found at %s", table, path), cause).
		WithContext("table", table).
		WithContext("path", path)
}

// NewSchemaError reports a missing column or a value that cannot be parsed
// as the column's declared type.
func NewSchemaError(table, column, message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, fmt.Sprintf("%s.%s: %s", table, column, message), cause).
		WithContext("table", table).
		WithContext("column", column)
}

// NewTypeCoercionError reports a value that cannot be cast to a numeric type.
func NewTypeCoercionError(column, value string, cause error) *AppError {
	return NewAppError(ErrTypeTypeCoercion, fmt.Sprintf("cannot coerce %s value %q", column, value), cause).
		WithContext("column", column).
		WithContext("value", value)
}

// NewIOError reports an output write failure.
func NewIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIO, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeDate       ErrorType = "DATE"
	ErrTypeUnreadable ErrorType = "UNREADABLE"
	ErrTypeExtraction ErrorType = "EXTRACTION"
	ErrTypeCoercion   ErrorType = "COERCION"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
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

// NewDateError reports a file name without a recognizable publication date
func NewDateError(name string) *AppError {
	return NewAppError(ErrTypeDate, "no recognized date pattern", nil).WithContext("name", name)
}

// NewUnreadableError reports a document published before the readability cutoff
func NewUnreadableError(path string, cutoff string) *AppError {
	return NewAppError(ErrTypeUnreadable, fmt.Sprintf("published before %s", cutoff), nil).
		WithContext("path", path)
}

// NewExtractionError wraps a failure to pull a table out of a document
func NewExtractionError(path string, cause error) *AppError {
	return NewAppError(ErrTypeExtraction, "table extraction failed", cause).WithContext("path", path)
}

// NewCoercionError reports a value that cannot be coerced to its column type
func NewCoercionError(column, value string, cause error) *AppError {
	return NewAppError(ErrTypeCoercion, fmt.Sprintf("column %q: cannot coerce %q", column, value), cause).
		WithContext("column", column).
		WithContext("value", value)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// TypeOf returns the ErrorType of the first AppError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// IsType reports whether err's chain carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsFatal reports whether err must halt a pipeline run.
// Date, cutoff and extraction errors are per-document and never fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	t, ok := TypeOf(err)
	if !ok {
		return true
	}
	switch t {
	case ErrTypeDate, ErrTypeUnreadable, ErrTypeExtraction:
		return false
	default:
		return true
	}
}

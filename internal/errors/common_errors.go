package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing       ErrorType = "PARSING"
	ErrTypeEmptyFilter   ErrorType = "EMPTY_FILTER"
	ErrTypeCollision     ErrorType = "COLLISION"
	ErrTypeMailTransport ErrorType = "MAIL_TRANSPORT"
	ErrTypeStorage       ErrorType = "STORAGE"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeConfig        ErrorType = "CONFIG"
)

// ErrNoValuesBelowThreshold is returned when a filtered average has no
// qualifying channel. Callers check it with errors.Is.
var ErrNoValuesBelowThreshold = &AppError{
	Type:    ErrTypeEmptyFilter,
	Message: "no data below threshold",
}

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

// TypeOf returns the type of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Helper functions for common error types

// NewParseError reports malformed measurement input. line is the 1-based
// physical line, or 0 when the problem is not tied to a line.
func NewParseError(file string, line int, message string, cause error) *AppError {
	msg := message
	if line > 0 {
		msg = fmt.Sprintf("%s (line %d)", message, line)
	}
	return NewAppError(ErrTypeParsing, msg, cause).
		WithContext("file", file).
		WithContext("line", line)
}

// NewCollisionError reports a relocation target that already exists with
// different content.
func NewCollisionError(path string) *AppError {
	return NewAppError(ErrTypeCollision, fmt.Sprintf("destination already exists: %s", path), nil).
		WithContext("path", path)
}

// NewMailTransportError reports an authentication, connection or delivery
// failure while sending a notification.
func NewMailTransportError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMailTransport, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

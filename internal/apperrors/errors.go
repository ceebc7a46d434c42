package apperrors

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)

// ConfigurationError reports a missing or malformed connection parameter.
// It is raised before any network I/O and is not retried.
type ConfigurationError struct {
	Param  string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Param, e.Reason)
}

// Unwrap returns the parse error, if any
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a transport, handshake or timeout failure while
// establishing the shared database handle.
type ConnectionError struct {
	Err error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	return "database connection failed: " + e.Err.Error()
}

// Unwrap returns the underlying driver error
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ValidationError reports the first field of a record that failed a
// structural or derived-field check.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a validation error for the given field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsConfiguration reports whether err is or wraps a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsConnection reports whether err is or wraps a ConnectionError
func IsConnection(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

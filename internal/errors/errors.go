package errors

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for common error conditions
var (
	// Log format errors
	ErrMalformedHeader    = errors.New("malformed header")
	ErrMissingSchema      = errors.New("missing field schema")
	ErrFieldCountMismatch = errors.New("field count mismatch")
	ErrExtraFields        = errors.New("more tokens than declared fields")
	ErrInvalidFieldValue  = errors.New("invalid field value")
	ErrDuplicateField     = errors.New("duplicate field")

	// Stream lifecycle errors
	ErrHeaderWritten    = errors.New("header already written")
	ErrHeaderNotWritten = errors.New("header not written")

	// Configuration errors
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// File/IO errors
	ErrFileNotFound = errors.New("file not found")
	ErrReadFailed   = errors.New("read failed")
	ErrWriteFailed  = errors.New("write failed")

	// General errors
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error wrapping functions

// Wrap wraps an error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Mark attaches a sentinel to err so that both match errors.Is.
func Mark(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// New creates a new error with formatted message
func New(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to extract a specific error type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the wrapped error
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Multi-error support for batches where one failure must not hide the others

// MultiError represents multiple errors. It is safe for concurrent use.
type MultiError struct {
	mu     sync.Mutex
	errors []error
}

// NewMultiError creates a new MultiError
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the MultiError
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.errors = append(m.errors, err)
	m.mu.Unlock()
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors) > 0
}

// Error implements the error interface
func (m *MultiError) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errors) == 0 {
		return ""
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}
	return fmt.Sprintf("multiple errors occurred: %v", m.errors)
}

// Errors returns all collected errors
func (m *MultiError) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errors...)
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors()
}

// ErrorOrNil returns nil if no errors, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if m.HasErrors() {
		return m
	}
	return nil
}

package models

import (
	"errors"
	"fmt"
)

// NotFoundError indicates the requested aggregate does not exist
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid caller input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StoreUnavailableError indicates the graph store could not be reached
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// QueryError indicates a malformed statement, a constraint violation or a
// result that does not match the expected shape
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Statement, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// TransactionError indicates a write transaction was rolled back
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction rolled back: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err carries a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsStoreUnavailable reports whether err carries a StoreUnavailableError
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

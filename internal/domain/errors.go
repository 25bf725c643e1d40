// Package domain defines core types, interfaces, and errors for the principal registry.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// InternalError wraps an unexpected store failure with a description of the
// operation that was running. The cause is kept for diagnostics.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrInternal creates an InternalError for the described operation.
func ErrInternal(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

// IsClassified reports whether err already carries one of the domain error
// kinds. Classified errors cross transaction boundaries unchanged.
func IsClassified(err error) bool {
	var (
		notFound     *NotFoundError
		accessDenied *AccessDeniedError
		validation   *ValidationError
		conflict     *ConflictError
		internal     *InternalError
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &accessDenied) ||
		errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &internal)
}

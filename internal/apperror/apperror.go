// Package apperror defines the domain errors shared by the snippet store,
// the interpreter table and the HTTP gateway.
//
// Each error carries a sentinel (ErrNotFound, ErrValidation, ErrUnsupported)
// so callers can branch with errors.Is, plus a human-readable Message that is
// safe to show to the user.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrUnsupported = errors.New("unsupported")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unsupported reports a value outside a closed enumeration, e.g. a language
// id with no interpreter adapter. The message format is user-facing:
//
//	Unsupported language: ruby
func Unsupported(what, value string) *AppError {
	return &AppError{
		Err:     ErrUnsupported,
		Message: fmt.Sprintf("Unsupported %s: %s", what, value),
		Field:   what,
	}
}

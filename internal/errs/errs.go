// Package errs holds the error categories shared by every service. Service
// packages declare their own sentinel errors with New so that callers can
// match either the specific error or its category with errors.Is.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation error")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrAlreadyRated      = errors.New("already rated")
)

// Error is a domain error carrying its category.
type Error struct {
	kind error
	msg  string
}

// New returns a domain error of the given category.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Retryable reports whether the caller should re-read and try again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// HTTPStatus maps an error category to a status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrAlreadyProcessed),
		errors.Is(err, ErrAlreadyRated):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

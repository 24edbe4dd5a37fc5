// Package apperr holds the error kinds shared by stores, services and the
// HTTP layer, and the mapping from those kinds to responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/adoteiftm/adote-backend/pkg/utils"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("service unavailable")
)

// publicError carries a message that is safe to show to clients while
// still matching its kind through errors.Is.
type publicError struct {
	kind error
	msg  string
}

func (e *publicError) Error() string { return e.msg }
func (e *publicError) Unwrap() error { return e.kind }

// Public returns an error of the given kind whose message is shown to callers verbatim.
func Public(kind error, msg string) error {
	return &publicError{kind: kind, msg: msg}
}

// HTTPStatus maps error kinds to HTTP status codes.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var verr *utils.ValidationError
	if errors.As(err, &verr) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the text that may be sent to a client for err.
// Internal error text never leaves the process.
func PublicMessage(err error) string {
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}

	var perr *publicError
	if errors.As(err, &perr) {
		return perr.msg
	}

	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return ErrValidation.Error()
	case http.StatusUnauthorized:
		return ErrUnauthenticated.Error()
	case http.StatusForbidden:
		return ErrForbidden.Error()
	case http.StatusNotFound:
		return ErrNotFound.Error()
	case http.StatusConflict:
		return ErrConflict.Error()
	case http.StatusServiceUnavailable:
		return ErrStoreUnavailable.Error()
	}

	return "internal server error"
}

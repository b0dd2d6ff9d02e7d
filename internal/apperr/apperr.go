// Package apperr defines the error kinds shared by the storage layer, the
// services and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the request boundary must treat it.
type Kind int

const (
	// Infrastructure is the default: storage unavailable or an unexpected
	// failure. Never leaked to clients in detail.
	Infrastructure Kind = iota
	NotFound
	Conflict
	Denied
	Invalid
	Unauthenticated
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case Denied:
		return "denied"
	case Invalid:
		return "invalid"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "infrastructure"
	}
}

// Error carries a Kind, a client-safe message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error { return newf(NotFound, format, args...) }
func Conflictf(format string, args ...interface{}) error { return newf(Conflict, format, args...) }
func Deniedf(format string, args ...interface{}) error   { return newf(Denied, format, args...) }
func Invalidf(format string, args ...interface{}) error  { return newf(Invalid, format, args...) }

func Unauthenticatedf(format string, args ...interface{}) error {
	return newf(Unauthenticated, format, args...)
}

// Wrap marks err as an infrastructure failure. A nil err stays nil, and an
// err that already carries a Kind is returned as is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: Infrastructure, Msg: msg, Err: err}
}

// WithKind attaches kind to a lower level error, e.g. a driver constraint
// violation that the caller knows to be a Conflict.
func WithKind(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain. Errors
// without one are Infrastructure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Infrastructure
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the message safe to show a client.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Infrastructure {
		return e.Msg
	}
	return "internal server error"
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Denied:
		return http.StatusForbidden
	case Invalid:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

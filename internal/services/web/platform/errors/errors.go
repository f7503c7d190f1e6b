// Package errors defines typed web failures and their HTTP mapping.
package errors

import (
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies application failures for consistent HTTP mapping.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnavailable  Kind = "unavailable"
)

// Error is a typed web application failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error renders the human-readable message.
func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes the cause.
func (e Error) Unwrap() error { return e.Err }

// E builds a typed Error.
func E(kind Kind, message string) error {
	return Error{Kind: kind, Message: message}
}

// Wrap builds a typed Error around cause, keeping cause's message.
func Wrap(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return Error{Kind: kind, Err: cause}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var appErr Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr Error
	if !stderrors.As(err, &appErr) {
		return grpcErrorHTTPStatus(err, http.StatusInternalServerError)
	}
	switch appErr.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func grpcErrorHTTPStatus(err error, fallback int) int {
	st, ok := status.FromError(err)
	if !ok {
		return fallback
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}

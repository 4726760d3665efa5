// Package authcore defines the error taxonomy shared by the credential
// verifiers, the registry adapters, and the authorization predicates.
//
// Every rejection produced by the trust layer is one of the five kinds
// below, identified by a stable machine-readable code. Boundary code
// (the HTTP features) maps kinds to status codes; nothing in this layer
// decides transport status itself.
//
// Malformed keys, unknown prefixes, hash mismatches, bad signatures, and
// expired payloads all collapse into ErrInvalidCredential so an
// unauthenticated caller cannot distinguish "wrong secret" from
// "unknown key". Infrastructure failures are ErrUpstreamUnavailable and
// must never be coerced into ErrInvalidCredential: doing so would change
// the caller-visible error taxonomy.
package authcore

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a taxonomy kind, optionally wrapping a cause.
// Two Errors are equal under errors.Is when their codes match, so
// sentinel checks survive wrapping via WithCause.
type Error struct {
	Code    string
	Message string
	Status  int

	cause error
}

// Taxonomy kinds. These are the only values this layer rejects with.
var (
	ErrInvalidCredential   = &Error{Code: "invalid_credential", Message: "invalid credential", Status: http.StatusUnauthorized}
	ErrUnauthorized        = &Error{Code: "unauthorized", Message: "not authorized", Status: http.StatusForbidden}
	ErrNotFound            = &Error{Code: "not_found", Message: "not found", Status: http.StatusNotFound}
	ErrInvalidOperation    = &Error{Code: "invalid_operation", Message: "operation not permitted", Status: http.StatusUnprocessableEntity}
	ErrUpstreamUnavailable = &Error{Code: "upstream_unavailable", Message: "upstream unavailable", Status: http.StatusServiceUnavailable}
)

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so wrapped errors still
// satisfy errors.Is(err, ErrInvalidCredential) etc.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of e carrying err as its cause. The cause is
// for logs only; it is never rendered to the caller.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Status: e.Status, cause: err}
}

// WithMessage returns a copy of e with a more specific message. The code
// and status are unchanged, so taxonomy checks still match.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Status: e.Status, cause: e.cause}
}

// CodeOf returns the taxonomy code for err, or "internal" if err is not
// part of the taxonomy.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// HTTPStatus returns the transport status for err. Unknown errors map to
// 500; they should not normally escape this layer.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to render to the caller.
// Non-taxonomy errors render a generic message so internal detail
// (driver errors, timeouts) never leaks.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

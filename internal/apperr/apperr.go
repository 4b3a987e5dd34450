// Package apperr carries the error taxonomy shared by every HTTP-facing
// package. Handlers convert these errors into the response envelope at the
// boundary; anything that is not an *Error is treated as an internal fault.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindAuthentication Kind = "AUTHENTICATION"
	KindConflict       Kind = "CONFLICT"
	KindNotFound       Kind = "NOT_FOUND"
	KindExpired        Kind = "EXPIRED"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindInternal       Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Status maps the kind onto the HTTP status returned to clients. Conflicts,
// missing and expired OTP challenges are reported as 400 like the rest of the
// bad-input family.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict, KindNotFound, KindExpired:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(msg string) *Error {
	return New(KindValidation, msg)
}

func Authentication(msg string) *Error {
	return New(KindAuthentication, msg)
}

func Conflict(msg string) *Error {
	return New(KindConflict, msg)
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg)
}

func Expired(msg string) *Error {
	return New(KindExpired, msg)
}

func RateLimited(msg string) *Error {
	return New(KindRateLimited, msg)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

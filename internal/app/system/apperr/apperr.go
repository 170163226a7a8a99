// internal/app/system/apperr/apperr.go
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the HTTP layer.
type Kind int

const (
	Internal Kind = iota
	Validation
	Auth            // bad credentials
	Unauthenticated // no token
	Permission      // invalid token, missing permission, inactive membership
	NotFound
	Conflict
	TooMany
	Transaction
)

// Error is a classified application error. Code is a stable machine-readable
// tag (e.g. OTP_EXPIRED) and may be empty. Message is safe to show clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a sentinel-style error.
func E(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or Internal when unclassified.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case Validation, Auth:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Permission:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case TooMany:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Invalid is shorthand for a validation failure without a code.
func Invalid(message string) *Error {
	return E(Validation, "", message)
}

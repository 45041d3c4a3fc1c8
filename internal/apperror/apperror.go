// Package apperror defines the failure kinds shared by the credential
// resolver and the repository data client.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedSecret    = errors.New("malformed secret")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrDecode             = errors.New("decode error")
)

// Error carries a failure kind together with the operation that failed.
type Error struct {
	Kind    error  // one of the sentinels above
	Op      string // e.g. "list memories"
	Message string
	Status  int // HTTP status, 0 when no response was received
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func MalformedSecret(message string) *Error {
	return &Error{Kind: ErrMalformedSecret, Op: "parse secret", Message: message}
}

func Decode(op string, err error) *Error {
	return &Error{Kind: ErrDecode, Op: op, Err: err}
}

func Unavailable(op string, err error) *Error {
	return &Error{Kind: ErrServiceUnavailable, Op: op, Err: err}
}

// FromStatus maps a non-2xx HTTP status to a failure kind.
// 401 and 403 are authorization failures, 404 is a missing resource and
// everything else (5xx, 429, unexpected codes) is treated as transient.
func FromStatus(op string, status int, body string) *Error {
	e := &Error{Op: op, Status: status, Message: fmt.Sprintf("HTTP %d", status)}
	if body != "" {
		e.Message += " — " + body
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = ErrUnauthorized
	case http.StatusNotFound:
		e.Kind = ErrNotFound
	default:
		e.Kind = ErrServiceUnavailable
	}
	return e
}

// Kind reports which sentinel err carries, or nil if none.
func Kind(err error) error {
	for _, k := range []error{ErrMalformedSecret, ErrUnauthorized, ErrNotFound, ErrServiceUnavailable, ErrDecode} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Retryable reports whether the user can simply try again later.
func Retryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// Package apperr holds the error kinds shared across the service.
// Domain errors wrap one of the kinds so handlers can map them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrRejected means a guard refused the operation; prior state is unchanged.
	ErrRejected = errors.New("rejected")
	// ErrTransport means the record store was unreachable or returned malformed data.
	ErrTransport = errors.New("transport failure")
)

// Error carries a user-facing message alongside its kind. Cause, when set,
// is the underlying failure and stays visible to errors.Is and errors.As.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// New returns an error of kind with a user-facing message. kind may itself be
// an *Error, giving a narrower sentinel that still matches the broad kind.
func New(kind error, msg string) error { return &Error{Kind: kind, Message: msg} }

// NotFound returns an ErrNotFound with a user-facing message.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

// Rejected returns an ErrRejected with a user-facing message.
func Rejected(msg string) error { return &Error{Kind: ErrRejected, Message: msg} }

// Transport wraps err as an ErrTransport.
func Transport(op string, err error) error {
	return &Error{Kind: ErrTransport, Message: fmt.Sprintf("%s: %v", op, err), Cause: err}
}

// Message returns the user-facing message of err, or fallback when err is not an *Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}

// Package errs defines the error kinds surfaced by the feed service.
package errs

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies a failure independently of the transport.
type Kind string

const (
	BadRequest         Kind = "BadRequest"
	NotFound           Kind = "NotFound"
	Conflict           Kind = "Conflict"
	Forbidden          Kind = "Forbidden"
	Unauthorized       Kind = "Unauthorized"
	TooManyRequests    Kind = "TooManyRequests"
	ServiceUnavailable Kind = "ServiceUnavailable"
	Internal           Kind = "InternalError"
)

// Error carries a kind, a message safe to show to callers and the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf returns an *Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and public message to err.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the public message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Server error. Please try again."
}

// FromStorage classifies a storage failure. Errors that already carry a kind
// are returned unchanged.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if Unavailable(err) {
		return Wrap(err, ServiceUnavailable, "Storage is unavailable. Please retry.")
	}
	return Wrap(err, Internal, "Server error. Please try again.")
}

// Unavailable reports whether err is a timeout or connectivity failure.
func Unavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

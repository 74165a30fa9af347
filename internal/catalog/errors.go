package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNetwork    = errors.New("network error")
	ErrFormat     = errors.New("unexpected response format")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid request")
)

// Error describes a failed catalog operation.
type Error struct {
	Kind   error  // one of the Err* kinds
	Op     string // e.g. "list", "detail", "resolve"
	Target string // URL or token involved
	Status int    // HTTP status, when there was a response
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Target != "" {
		msg += " [" + e.Target + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, target string, status int, cause error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Status: status, Err: cause}
}

// Validation builds an ErrValidation error with a user-facing reason.
func Validation(op, reason string) error {
	return newError(ErrValidation, op, "", 0, errors.New(reason))
}

// NotFound builds an ErrNotFound error for target.
func NotFound(op, target string) error {
	return newError(ErrNotFound, op, target, 0, nil)
}

// Message turns any error into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	switch {
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	case errors.Is(err, ErrValidation):
		if errors.As(err, &ce) && ce.Err != nil {
			return ce.Err.Error()
		}
		return "Invalid selection."
	case errors.Is(err, ErrNotFound):
		return "Game not found."
	case errors.Is(err, ErrFormat):
		return "The catalog returned an unexpected response."
	case errors.Is(err, ErrNetwork):
		if errors.As(err, &ce) && ce.Status != 0 {
			return fmt.Sprintf("The catalog is unavailable (error %d). Try again.", ce.Status)
		}
		return "Could not reach the catalog. Try again."
	default:
		return "Unexpected error."
	}
}

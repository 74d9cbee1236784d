package session

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	BadRequest
	NotFound
	Unauthorized
	Conflict
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad request"
	case NotFound:
		return "not found"
	case Unauthorized:
		return "unauthorized"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is the only error type the Manager returns. The cause is for logs;
// clients only ever see the kind.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// KindOf reports the kind carried by err. Errors that did not come from the
// Manager are Internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Internal
}

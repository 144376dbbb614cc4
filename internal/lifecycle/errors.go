package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected transition so callers can distinguish
// permission and state violations (not retryable) from transient failures
// (retryable by re-invoking the same action).
type Kind string

const (
	// KindUnauthorized: the actor lacks permission for the action.
	KindUnauthorized Kind = "unauthorized"
	// KindInvalidState: the job or applicant is not in a state where the
	// action is legal.
	KindInvalidState Kind = "invalid_state"
	// KindInvalidInput: malformed value — out-of-range rating, unmet skill
	// requirement.
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound: the referenced job, applicant or user is absent.
	KindNotFound Kind = "not_found"
)

// Error is a rejected transition. Every precondition is checked before any
// write, so an Error means nothing was persisted.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// ErrNotFound is the shared not-found sentinel. Storage returns it for
// missing rows; the engine passes it through.
var ErrNotFound = &Error{Kind: KindNotFound, Msg: "not found"}

func unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or "" when err is not a lifecycle
// Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

package remote

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrCredentialsMissing = errors.New("remote: credentials are not defined")
	ErrUnavailable        = errors.New("remote: host unreachable or transport failure")
	ErrNotFound           = errors.New("remote: video not found")
	ErrRejected           = errors.New("remote: request rejected")
	ErrBadResponse        = errors.New("remote: invalid response format or malformed data")
)

// Error wraps a sentinel with the failing operation and upstream details.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("remote: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause, so callers can
// match context.Canceled or context.DeadlineExceeded as well.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

func newError(sentinel error, op string, status int, body string, err error) *Error {
	return &Error{Sentinel: sentinel, Operation: op, Status: status, Body: body, Err: err}
}

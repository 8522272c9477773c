package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSession indicates an operation ran without an active rendered page.
// This is a precondition failure; callers load a program first, they do not
// retry.
var ErrNoSession = errors.New("session: no active page")

// NotFoundError reports a failed lookup together with the alternatives that
// were available, so a caller can correct the request without inspecting the
// page. Kind is "module", "input" or "button".
type NotFoundError struct {
	Kind      string
	Wanted    string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("session: %s %q not found", e.Kind, e.Wanted)
	}
	return fmt.Sprintf("session: %s %q not found (available: %s)",
		e.Kind, e.Wanted, strings.Join(e.Available, ", "))
}

// IsNotFound returns true when err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// TimeoutError marks a navigation or readiness wait that ran out of time.
// Fatal to the current operation; retrying is the caller's decision.
type TimeoutError struct {
	Stage string
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("session: %s wait timed out: %v", e.Stage, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

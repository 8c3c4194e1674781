package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrForbidden = errors.New("order does not belong to the requesting actor")

	// ErrConflict means a concurrent transition won the compare-and-swap and
	// moved the order somewhere other than the requested target. Clients
	// should refresh and re-render rather than retry.
	ErrConflict = errors.New("order was modified by a concurrent transition")

	errDuplicateRef = errors.New("order reference already taken")
)

// TransitionError is returned when the requested transition is not legal from
// the order's current status. The store is left untouched.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ValidationError rejects a malformed request before it reaches the store
// (empty cart, unknown menu item, bad quantity). Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

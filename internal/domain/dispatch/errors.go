package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned by a RecordStore when no row exists for an id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned by RecordStore.Create when the id is taken.
	ErrRecordExists = errors.New("record already exists")

	// ErrPreconditionFailed is returned by a RecordStore when a conditional
	// update finds the row no longer matches the expected values.
	ErrPreconditionFailed = errors.New("record changed since it was read")

	// ErrIllegalTransition is wrapped by TransitionError.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrWorkerUnavailable is surfaced to a customer whose order lost the race
	// for a worker, or who targeted a worker that is not accepting orders.
	ErrWorkerUnavailable = errors.New("worker no longer available")

	// ErrStaleState is surfaced to a worker whose row changed between the read
	// that justified a transition and the conditional write.
	ErrStaleState = errors.New("order state changed, refresh and retry")

	// ErrInvariantViolation is returned when a record read from the store is
	// internally inconsistent.
	ErrInvariantViolation = errors.New("record invariant violated")

	// ErrNoTrackedOrder is returned when a customer asks for the current order
	// view without having submitted one.
	ErrNoTrackedOrder = errors.New("no order is being tracked")
)

// ValidationError reports user input that was rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransitionError reports a transition attempted from a phase that does not
// permit it.
type TransitionError struct {
	Transition Transition
	From       Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed from %s", e.Transition, e.From)
}

// Unwrap lets callers match with errors.Is(err, ErrIllegalTransition).
func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err looks like a connectivity problem with the
// store rather than a domain outcome. Transient errors are retried on the
// next poll tick.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrRecordExists),
		errors.Is(err, ErrPreconditionFailed),
		errors.Is(err, ErrIllegalTransition),
		errors.Is(err, ErrWorkerUnavailable),
		errors.Is(err, ErrStaleState),
		errors.Is(err, ErrInvariantViolation),
		errors.Is(err, ErrNoTrackedOrder),
		IsValidation(err):
		return false
	}
	return true
}

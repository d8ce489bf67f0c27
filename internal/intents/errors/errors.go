package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("booking intent not found")

	ErrBookingNotFound = errors.New("booking not found")

	// ErrStaleState means a compare-and-swap lost its race: the intent's
	// state changed between the caller's read and its write. The caller must
	// re-read and decide whether its transition still applies.
	ErrStaleState = errors.New("intent state changed concurrently")

	ErrNotOwner = errors.New("intent belongs to a different customer")

	ErrAlreadyTerminal = errors.New("intent is already in a terminal state")

	ErrExpired = errors.New("intent lease has expired")

	ErrExtendTooEarly = errors.New("too much time left on the lease to extend")

	ErrExtensionLimit = errors.New("extension limit reached")
)

type ConflictReason string

const (
	ReasonLockedByOther   ConflictReason = "locked_by_other"
	ReasonExistingBooking ConflictReason = "existing_booking"
)

// ConflictError reports why an acquisition failed: another customer's active
// lock (retryable once the lease lapses) or a confirmed booking (permanent
// for that range). The holder's identity is deliberately not carried.
type ConflictError struct {
	Reason      ConflictReason
	LockedUntil time.Time
}

func (e *ConflictError) Error() string {
	if e.Reason == ReasonExistingBooking {
		return "date range conflicts with an existing booking"
	}
	return fmt.Sprintf("date range locked by another customer until %s", e.LockedUntil.Format(time.RFC3339))
}

// RetryAfterSeconds is the whole number of seconds until the conflicting
// lock lapses, never negative. Zero for booking conflicts.
func (e *ConflictError) RetryAfterSeconds(now time.Time) int {
	if e.Reason == ReasonExistingBooking {
		return 0
	}
	remaining := e.LockedUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// AsConflict unwraps a ConflictError if err carries one.
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

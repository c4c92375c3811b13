package booking

import "errors"

// The engine's expected, user-facing outcomes. Anything else bubbling out of
// the ledger is an infrastructure failure and should be treated as retryable.
var (
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrSelfBooking         = errors.New("requester owns this resource")
	ErrOutsideAvailability = errors.New("interval outside declared availability")
	ErrSlotConflict        = errors.New("interval conflicts with an existing booking")
	ErrInvalidTransition   = errors.New("invalid booking status transition")
	ErrBookingNotFound     = errors.New("booking not found")
)

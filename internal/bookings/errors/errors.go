package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotUnavailable means the overlap check inside the commit found a conflicting booking.
	ErrSlotUnavailable = errors.New("slot already booked for an overlapping interval")

	// ErrSlotLocked means the per-slot commit lock could not be acquired within the retry budget.
	ErrSlotLocked = errors.New("slot is being booked by another request")

	ErrSlotNotFound = errors.New("slot referenced by booking not found")

	// ErrSlotTypeChanged means the slot no longer has the booking's vehicle type at commit time.
	ErrSlotTypeChanged = errors.New("slot vehicle type no longer matches the booking")
)

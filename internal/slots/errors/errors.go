package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	ErrDuplicateNumber = errors.New("slot number already exists for this vehicle type")

	// ErrReferenced means bookings still point at the slot, so it cannot be deleted or retyped.
	ErrReferenced = errors.New("slot is referenced by bookings")

	// ErrBusy means a booking commit held the slot for longer than the lock retry budget.
	ErrBusy = errors.New("slot is locked by a booking in progress")
)

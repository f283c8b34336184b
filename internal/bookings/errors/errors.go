package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrOverlap is returned when the store refuses a booking whose interval
	// intersects a blocking booking on the same resource.
	ErrOverlap = errors.New("booking interval overlaps an existing booking")

	ErrDuplicateNumber = errors.New("booking number already exists")

	// ErrStaleState is returned by a compare-and-set update whose precondition
	// no longer holds.
	ErrStaleState = errors.New("booking state changed concurrently")

	ErrLockHeld = errors.New("booking lock is held")
)

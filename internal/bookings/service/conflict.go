package service

import (
	"context"
	"time"

	"maharaja/internal/bookings/repository"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/model"
)

type checkOptions struct {
	excludeID string
	allowPast bool
}

type CheckOption func(*checkOptions)

// WithExclude ignores one booking, typically the one being re-checked.
func WithExclude(bookingID string) CheckOption {
	return func(o *checkOptions) {
		o.excludeID = bookingID
	}
}

// AllowPast waives the not-in-the-past rule for internal re-checks and queries.
func AllowPast() CheckOption {
	return func(o *checkOptions) {
		o.allowPast = true
	}
}

// ConflictChecker answers whether an interval on a resource is taken by a
// pending or confirmed booking. A false answer is only true at the moment it
// is given; the store re-checks on insert.
type ConflictChecker struct {
	repo repository.BookingRepository
	now  func() time.Time
}

func NewConflictChecker(repo repository.BookingRepository) *ConflictChecker {
	return &ConflictChecker{repo: repo, now: time.Now}
}

func (c *ConflictChecker) HasConflict(ctx context.Context, resourceID string, iv model.Interval, opts ...CheckOption) (bool, error) {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := c.CheckInterval(iv, o.allowPast); err != nil {
		return false, err
	}

	overlapping, err := c.repo.FindOverlapping(ctx, resourceID, iv, o.excludeID)
	if err != nil {
		return false, apperrors.Internal("Failed to check booking conflicts", err)
	}
	return len(overlapping) > 0, nil
}

// CheckInterval rejects empty or reversed intervals, and ones that start in
// the past unless allowPast is set.
func (c *ConflictChecker) CheckInterval(iv model.Interval, allowPast bool) error {
	if !iv.Valid() {
		return apperrors.Validation("Check-out must be after check-in", map[string]any{
			"check_in":  iv.Start,
			"check_out": iv.End,
		})
	}
	if !allowPast && iv.Start.Before(c.now()) {
		return apperrors.Validation("Check-in cannot be in the past", map[string]any{
			"check_in": iv.Start,
		})
	}
	return nil
}

// IsAvailable reports whether no blocking booking overlaps iv. It does not
// reject past intervals, so it also serves historical queries.
func (c *ConflictChecker) IsAvailable(ctx context.Context, resourceID string, iv model.Interval) (bool, error) {
	conflict, err := c.HasConflict(ctx, resourceID, iv, AllowPast())
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

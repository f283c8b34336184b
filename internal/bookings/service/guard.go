package service

import (
	"context"
	"time"

	"maharaja/internal/bookings/repository"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/logger"
	"maharaja/pkg/model"
)

// Guard rejects a booking attempt when an identical one was made moments ago.
// It is an optimisation in front of the store's overlap check and fails open:
// any internal error lets the request through.
type Guard struct {
	repo   repository.BookingRepository
	locks  repository.LockStore
	window time.Duration
	log    *logger.Logger
	now    func() time.Time
}

func NewGuard(repo repository.BookingRepository, locks repository.LockStore, window time.Duration, log *logger.Logger) *Guard {
	return &Guard{
		repo:   repo,
		locks:  locks,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// Acquire returns a ConflictError when a pending booking with the same key
// was created within the window, or another request holds the key right now.
// The returned func must be called once the attempt has finished. The key is
// released on both outcomes: after a commit the recent-pending lookup covers
// the window, so a later cancellation frees the interval immediately.
func (g *Guard) Acquire(ctx context.Context, resourceID string, iv model.Interval) (func(created bool), error) {
	noop := func(bool) {}
	key := model.GuardKey(resourceID, iv)

	recent, err := g.repo.CountRecentPending(ctx, resourceID, iv, g.now().Add(-g.window))
	switch {
	case err != nil:
		g.log.Warn("Booking guard lookup failed, continuing", "key", key, "error", err)
	case recent > 0:
		g.log.Info("Booking guard rejected duplicate attempt", "key", key, "recent", recent)
		return noop, duplicateAttempt()
	}

	if g.locks == nil {
		return noop, nil
	}

	acquired, err := g.locks.Acquire(ctx, key, g.window)
	if err != nil {
		g.log.Warn("Booking guard lock unavailable, continuing", "key", key, "error", err)
		return noop, nil
	}
	if !acquired {
		g.log.Info("Booking guard rejected concurrent attempt", "key", key)
		return noop, duplicateAttempt()
	}

	return func(created bool) {
		if err := g.locks.Release(context.WithoutCancel(ctx), key); err != nil {
			g.log.Warn("Failed to release booking guard", "key", key, "created", created, "error", err)
		}
	}, nil
}

func duplicateAttempt() error {
	return apperrors.Conflict("An identical booking request was just made. Please wait before trying again.")
}

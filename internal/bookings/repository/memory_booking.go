package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	bookingserrors "maharaja/internal/bookings/errors"
	"maharaja/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryBookingRepository is a process-local BookingRepository with the same
// atomicity guarantees as the Mongo store. It backs tests and local runs
// without a replica set.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	order    []string
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (r *MemoryBookingRepository) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.BookingNumber == b.BookingNumber {
			return bookingserrors.ErrDuplicateNumber
		}
		if existing.ResourceID == b.ResourceID && existing.Status.Blocks() && existing.Interval().Overlaps(b.Interval()) {
			return bookingserrors.ErrOverlap
		}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.ID = primitive.NewObjectID().Hex()

	stored := *b
	r.bookings[b.ID] = &stored
	r.order = append(r.order, b.ID)
	return nil
}

func (r *MemoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *MemoryBookingRepository) FindByTransactionID(_ context.Context, transactionID string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if transactionID != "" {
		for _, id := range r.order {
			if b := r.bookings[id]; b.TransactionID == transactionID {
				out := *b
				return &out, nil
			}
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *MemoryBookingRepository) FindAll(_ context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(func(b *model.Booking) bool { return filterMatches(filter, b) })
	slices.SortStableFunc(matched, func(a, b *model.Booking) int {
		if c := b.CheckIn.Compare(a.CheckIn); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryBookingRepository) Count(_ context.Context, filter model.BookingFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.matching(func(b *model.Booking) bool { return filterMatches(filter, b) }))), nil
}

func (r *MemoryBookingRepository) FindOverlapping(_ context.Context, resourceID string, interval model.Interval, excludeID string) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.matching(func(b *model.Booking) bool {
		return b.ID != excludeID &&
			b.ResourceID == resourceID &&
			b.Status.Blocks() &&
			b.Interval().Overlaps(interval)
	}), nil
}

func (r *MemoryBookingRepository) CountRecentPending(_ context.Context, resourceID string, interval model.Interval, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.matching(func(b *model.Booking) bool {
		return b.ResourceID == resourceID &&
			b.CheckIn.Equal(interval.Start) &&
			b.CheckOut.Equal(interval.End) &&
			b.Status == model.StatusPending &&
			!b.CreatedAt.Before(since)
	}))), nil
}

func (r *MemoryBookingRepository) FindStalePending(_ context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stale := r.matching(func(b *model.Booking) bool {
		return b.Status == model.StatusPending &&
			b.PaymentStatus == model.PaymentPending &&
			b.CreatedAt.Before(createdBefore)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (r *MemoryBookingRepository) ApplyTransition(_ context.Context, id string, cond model.BookingCondition, patch model.BookingPatch) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !cond.Matches(b) {
		return nil, bookingserrors.ErrStaleState
	}

	patch.Apply(b)
	b.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	out := *b
	return &out, nil
}

// Put stores b as-is, bypassing overlap checks. Used to seed fixtures.
func (r *MemoryBookingRepository) Put(b *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	if _, exists := r.bookings[b.ID]; !exists {
		r.order = append(r.order, b.ID)
	}
	stored := *b
	r.bookings[b.ID] = &stored
}

// matching must be called with r.mu held.
func (r *MemoryBookingRepository) matching(pred func(*model.Booking) bool) []*model.Booking {
	out := make([]*model.Booking, 0)
	for _, id := range r.order {
		if b := r.bookings[id]; pred(b) {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

func filterMatches(f model.BookingFilter, b *model.Booking) bool {
	return (f.OwnerID == "" || b.OwnerID == f.OwnerID) &&
		(f.ResourceID == "" || b.ResourceID == f.ResourceID) &&
		(f.Status == "" || b.Status == f.Status)
}

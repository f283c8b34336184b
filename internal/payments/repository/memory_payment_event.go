package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	paymentserrors "maharaja/internal/payments/errors"
	"maharaja/pkg/model"
)

type MemoryPaymentEventRepository struct {
	mu     sync.Mutex
	events map[string]*model.PaymentEvent
}

func NewMemoryPaymentEventRepository() *MemoryPaymentEventRepository {
	return &MemoryPaymentEventRepository{events: make(map[string]*model.PaymentEvent)}
}

func (r *MemoryPaymentEventRepository) Begin(_ context.Context, event *model.PaymentEvent) (*model.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored, ok := r.events[event.ID]
	if !ok {
		r.events[event.ID] = &model.PaymentEvent{
			ID:         event.ID,
			Event:      event.Event,
			PaymentID:  event.PaymentID,
			BookingID:  event.BookingID,
			Deliveries: 1,
			ReceivedAt: now,
			LastSeenAt: now,
		}
		return nil, nil
	}

	prior := *stored
	stored.Deliveries++
	stored.LastSeenAt = now
	return &prior, nil
}

func (r *MemoryPaymentEventRepository) Complete(_ context.Context, id string, bookingID string, applied bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", paymentserrors.ErrNotFound, id)
	}
	stored.Processed = true
	stored.Applied = applied
	if bookingID != "" {
		stored.BookingID = bookingID
	}
	return nil
}

func (r *MemoryPaymentEventRepository) FindByID(_ context.Context, id string) (*model.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", paymentserrors.ErrNotFound, id)
	}
	c := *stored
	return &c, nil
}

package events

import (
	"context"
	"sync"

	"maharaja/pkg/model"
)

// Recorder is an in-memory Publisher that keeps everything it is given.
type Recorder struct {
	mu              sync.Mutex
	Bookings        []BookingEvent
	Reconciliations []model.Reconciliation
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PublishBooking(_ context.Context, eventType string, b *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Bookings = append(r.Bookings, NewBookingEvent(eventType, b, b.UpdatedAt))
}

func (r *Recorder) PublishReconciliation(_ context.Context, rec model.Reconciliation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reconciliations = append(r.Reconciliations, rec)
}

func (r *Recorder) Close() error { return nil }

// Types lists the booking event types seen so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Bookings))
	for _, e := range r.Bookings {
		types = append(types, e.Type)
	}
	return types
}

func (r *Recorder) ReconciliationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Reconciliations)
}

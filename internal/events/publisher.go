package events

import (
	"context"
	"time"

	"maharaja/pkg/model"
)

const (
	BookingCreated         = "booking.created"
	BookingConfirmed       = "booking.confirmed"
	BookingCancelled       = "booking.cancelled"
	BookingStatusChanged   = "booking.status_changed"
	BookingPaymentRecorded = "booking.payment_recorded"
	BookingRefunded        = "booking.refunded"

	PaymentReconciliation = "payment.reconciliation"

	SchemaVersion = "1"
	Source        = "maharaja-reservations"
)

// Publisher emits lifecycle notifications. Publishing is fire-and-forget:
// a failure is logged by the implementation and never fails the caller.
type Publisher interface {
	PublishBooking(ctx context.Context, eventType string, b *model.Booking)
	PublishReconciliation(ctx context.Context, rec model.Reconciliation)
	Close() error
}

// BookingEvent is the payload written to the booking events topic.
type BookingEvent struct {
	Type          string              `json:"type"`
	BookingID     string              `json:"booking_id"`
	BookingNumber string              `json:"booking_number"`
	ResourceID    string              `json:"resource_id"`
	Kind          model.ResourceKind  `json:"kind"`
	OwnerID       string              `json:"owner_id"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	CheckIn       time.Time           `json:"check_in"`
	CheckOut      time.Time           `json:"check_out"`
	TotalPrice    int64               `json:"total_price"`
	PaidAmount    int64               `json:"paid_amount"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		ResourceID:    b.ResourceID,
		Kind:          b.Kind,
		OwnerID:       b.OwnerID,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CheckIn:       b.CheckIn,
		CheckOut:      b.CheckOut,
		TotalPrice:    b.TotalPrice,
		PaidAmount:    b.PaidAmount,
		OccurredAt:    at,
	}
}

type noopPublisher struct{}

// NewNoopPublisher is used when events are disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishBooking(context.Context, string, *model.Booking)      {}
func (noopPublisher) PublishReconciliation(context.Context, model.Reconciliation) {}
func (noopPublisher) Close() error                                                { return nil }

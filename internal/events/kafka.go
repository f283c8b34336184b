package events

import (
	"context"
	"time"

	"maharaja/pkg/kafka"
	"maharaja/pkg/logger"
	"maharaja/pkg/middleware"
	"maharaja/pkg/model"
)

// Sender is the subset of *kafka.Producer the publisher needs.
type Sender interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	sender              Sender
	bookingTopic        string
	reconciliationTopic string
	log                 *logger.Logger
	now                 func() time.Time
}

func NewKafkaPublisher(sender Sender, bookingTopic, reconciliationTopic string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		sender:              sender,
		bookingTopic:        bookingTopic,
		reconciliationTopic: reconciliationTopic,
		log:                 log,
		now:                 time.Now,
	}
}

func (p *kafkaPublisher) PublishBooking(ctx context.Context, eventType string, b *model.Booking) {
	if b == nil {
		return
	}
	msg, err := kafka.NewMessage().
		WithKey(b.ID).
		WithValue(NewBookingEvent(eventType, b, p.now())).
		WithEventID("").
		WithEventType(eventType).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		p.log.Error("Failed to build booking event", "event_type", eventType, "booking_id", b.ID, "error", err)
		return
	}
	msg.Topic = p.bookingTopic
	p.send(ctx, msg, "booking_id", b.ID)
}

func (p *kafkaPublisher) PublishReconciliation(ctx context.Context, rec model.Reconciliation) {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = p.now()
	}
	msg, err := kafka.NewMessage().
		WithKey(rec.BookingID).
		WithValue(rec).
		WithEventID("").
		WithEventType(PaymentReconciliation).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		p.log.Error("Failed to build reconciliation event", "booking_id", rec.BookingID, "error", err)
		return
	}
	msg.Topic = p.reconciliationTopic
	p.send(ctx, msg, "booking_id", rec.BookingID)
}

func (p *kafkaPublisher) send(ctx context.Context, msg kafka.Message, args ...any) {
	// The request context may be cancelled right after the response is
	// written; the publish keeps its values but not its deadline.
	if err := p.sender.Publish(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Error("Failed to publish event",
			append([]any{"topic", msg.Topic, "event_type", msg.GetEventType(), "error", err}, args...)...,
		)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.sender.Close()
}

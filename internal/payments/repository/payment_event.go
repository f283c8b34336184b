package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentserrors "maharaja/internal/payments/errors"
	"maharaja/pkg/config"
	mongotx "maharaja/pkg/db/mongo"
	"maharaja/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Payment_events"
)

// PaymentEventRepository is the webhook delivery log. Event ids are unique,
// so it doubles as the redelivery filter.
type PaymentEventRepository interface {
	// Begin records a delivery of event and returns the record as it was
	// before this delivery, or nil on first sight.
	Begin(ctx context.Context, event *model.PaymentEvent) (*model.PaymentEvent, error)
	// Complete marks the event processed once its effect has been applied.
	Complete(ctx context.Context, id string, bookingID string, applied bool) error
	FindByID(ctx context.Context, id string) (*model.PaymentEvent, error)
}

type mongoPaymentEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentEventRepository(cfg *config.Config) PaymentEventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentEventRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPaymentEventRepository) Begin(ctx context.Context, event *model.PaymentEvent) (*model.PaymentEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"event":       event.Event,
			"payment_id":  event.PaymentID,
			"booking_id":  event.BookingID,
			"applied":     false,
			"processed":   false,
			"received_at": now,
		},
		"$inc": bson.M{"deliveries": 1},
		"$set": bson.M{"last_seen_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var prior model.PaymentEvent
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": event.ID}, update, opts).Decode(&prior)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to record payment event: %w", err)
	}
	return &prior, nil
}

func (r *mongoPaymentEventRepository) Complete(ctx context.Context, id string, bookingID string, applied bool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{"processed": true, "applied": applied}
	if bookingID != "" {
		set["booking_id"] = bookingID
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to complete payment event: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", paymentserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoPaymentEventRepository) FindByID(ctx context.Context, id string) (*model.PaymentEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var event model.PaymentEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", paymentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find payment event: %w", err)
	}
	return &event, nil
}

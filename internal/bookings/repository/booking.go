package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "maharaja/internal/bookings/errors"
	"maharaja/pkg/config"
	mongotx "maharaja/pkg/db/mongo"
	"maharaja/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName       = "Bookings"
	ClaimsCollectionName = "Resource_claims"

	// BookingNumberIndex must match the unique index created by the migration.
	BookingNumberIndex = "booking_number_unique"
)

type BookingRepository interface {
	// Create inserts b after atomically re-checking that no blocking booking
	// on the same resource overlaps it. It returns ErrOverlap or
	// ErrDuplicateNumber when the store refuses the insert.
	Create(ctx context.Context, b *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Booking, error)
	FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	FindOverlapping(ctx context.Context, resourceID string, interval model.Interval, excludeID string) ([]*model.Booking, error)
	CountRecentPending(ctx context.Context, resourceID string, interval model.Interval, since time.Time) (int64, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error)
	// ApplyTransition writes patch only if the stored booking still matches
	// cond, returning the updated booking or ErrStaleState.
	ApplyTransition(ctx context.Context, id string, cond model.BookingCondition, patch model.BookingPatch) (*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	claims     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		claims:     db.Collection(ClaimsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	b.CreatedAt = now
	b.UpdatedAt = now

	var insertedID string
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		// Every creator for the resource writes the same claim document, so
		// concurrent transactions conflict and one of them retries.
		_, err := r.claims.UpdateOne(sessCtx,
			bson.M{"_id": b.ResourceID},
			bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"updated_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to claim resource: %w", err)
		}

		count, err := r.collection.CountDocuments(sessCtx, overlapFilter(b.ResourceID, b.Interval(), ""))
		if err != nil {
			return fmt.Errorf("failed to re-check overlap: %w", err)
		}
		if count > 0 {
			return bookingserrors.ErrOverlap
		}

		result, err := r.collection.InsertOne(sessCtx, b)
		if err != nil {
			return err
		}
		if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
			insertedID = oid.Hex()
		}
		return nil
	})
	if err != nil {
		return translateWriteError(err)
	}

	b.ID = insertedID
	return nil
}

// translateWriteError maps duplicate-key failures onto the index that raised them.
func translateWriteError(err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrOverlap):
		return bookingserrors.ErrOverlap
	case mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), BookingNumberIndex):
		return bookingserrors.ErrDuplicateNumber
	case mongo.IsDuplicateKeyError(err):
		return bookingserrors.ErrOverlap
	}
	return fmt.Errorf("failed to create booking: %w", err)
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoBookingRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if transactionID == "" {
		return nil, bookingserrors.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "check_in", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, listFilter(filter), opts)
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, listFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindOverlapping(ctx context.Context, resourceID string, interval model.Interval, excludeID string) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}})
	return r.find(ctx, overlapFilter(resourceID, interval, excludeID), opts)
}

func (r *mongoBookingRepository) CountRecentPending(ctx context.Context, resourceID string, interval model.Interval, since time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"resource_id": resourceID,
		"check_in":    interval.Start,
		"check_out":   interval.End,
		"status":      model.StatusPending,
		"created_at":  bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count recent bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, bson.M{
		"status":         model.StatusPending,
		"payment_status": model.PaymentPending,
		"created_at":     bson.M{"$lt": createdBefore},
	}, opts)
}

func (r *mongoBookingRepository) ApplyTransition(ctx context.Context, id string, cond model.BookingCondition, patch model.BookingPatch) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := conditionFilter(cond)
	filter["_id"] = objectID

	set := patchSet(patch)
	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Booking
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	// Distinguish a missing booking from a failed precondition.
	exists, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if countErr != nil {
		return nil, fmt.Errorf("failed to check booking existence: %w", countErr)
	}
	if exists == 0 {
		return nil, bookingserrors.ErrNotFound
	}
	return nil, bookingserrors.ErrStaleState
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*model.Booking, 0)
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// overlapFilter matches blocking bookings intersecting interval (half-open).
func overlapFilter(resourceID string, interval model.Interval, excludeID string) bson.M {
	filter := bson.M{
		"resource_id": resourceID,
		"status":      bson.M{"$in": model.BlockingStatuses},
		"check_in":    bson.M{"$lt": interval.End},
		"check_out":   bson.M{"$gt": interval.Start},
	}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	return filter
}

func listFilter(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.ResourceID != "" {
		filter["resource_id"] = f.ResourceID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func conditionFilter(c model.BookingCondition) bson.M {
	filter := bson.M{}
	if len(c.Statuses) > 0 {
		filter["status"] = bson.M{"$in": c.Statuses}
	}
	if len(c.PaymentStatuses) > 0 {
		filter["payment_status"] = bson.M{"$in": c.PaymentStatuses}
	}
	if c.PaidAmount != nil {
		filter["paid_amount"] = *c.PaidAmount
	}
	if c.TransactionID != nil {
		if *c.TransactionID == "" {
			filter["transaction_id"] = bson.M{"$in": bson.A{nil, ""}}
		} else {
			filter["transaction_id"] = *c.TransactionID
		}
	}
	return filter
}

func patchSet(p model.BookingPatch) bson.M {
	set := bson.M{}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.PaymentStatus != nil {
		set["payment_status"] = *p.PaymentStatus
	}
	if p.PaidAmount != nil {
		set["paid_amount"] = *p.PaidAmount
	}
	if p.TransactionID != nil {
		set["transaction_id"] = *p.TransactionID
	}
	if p.CancellationReason != nil {
		set["cancellation_reason"] = *p.CancellationReason
	}
	if p.RefundReason != nil {
		set["refund_reason"] = *p.RefundReason
	}
	return set
}

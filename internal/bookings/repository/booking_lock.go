package repository

import (
	"context"
	"fmt"
	"time"

	"maharaja/pkg/config"
	mongotx "maharaja/pkg/db/mongo"
	"maharaja/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LocksCollectionName = "Booking_locks"

// LockStore holds short-lived advisory keys for the booking guard.
type LockStore interface {
	// Acquire reports false when key is already held and not yet expired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type mongoLockStore struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// NewMongoLockStore keeps locks in Booking_locks. The TTL index on
// expires_at only sweeps about once a minute, so Acquire also reclaims
// expired entries itself.
func NewMongoLockStore(cfg *config.Config) LockStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockStore{
		cfg:        cfg,
		collection: db.Collection(LocksCollectionName),
	}
}

func (s *mongoLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := &model.BookingLock{
		ID:        key,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	for attempt := 0; attempt < 2; attempt++ {
		_, err := s.collection.InsertOne(ctx, lock)
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to acquire booking lock: %w", err)
		}

		res, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": now}})
		if err != nil {
			return false, fmt.Errorf("failed to reclaim expired booking lock: %w", err)
		}
		if res.DeletedCount == 0 {
			return false, nil
		}
	}
	return false, nil
}

func (s *mongoLockStore) Release(ctx context.Context, key string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}

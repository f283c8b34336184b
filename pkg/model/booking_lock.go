package model

import (
	"fmt"
	"time"
)

// BookingLock is a short-lived advisory lock on one (resource, interval) key.
// It only narrows duplicate submissions; overlap safety lives in the booking store.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// GuardKey is the identity of a booking attempt for duplicate suppression.
func GuardKey(resourceID string, interval Interval) string {
	return fmt.Sprintf("booking_guard:%s:%d:%d", resourceID, interval.Start.UnixMilli(), interval.End.UnixMilli())
}

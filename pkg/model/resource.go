package model

import "time"

type ResourceKind string

const (
	KindRoom  ResourceKind = "room"
	KindHall  ResourceKind = "hall"
	KindTable ResourceKind = "table"
)

type ResourceStatus string

const (
	ResourceAvailable    ResourceStatus = "available"
	ResourceMaintenance  ResourceStatus = "maintenance"
	ResourceOutOfService ResourceStatus = "out_of_service"
)

// Resource is a bookable unit of the catalog. Resources are never deleted,
// only deactivated through IsActive.
type Resource struct {
	ID          string         `json:"id,omitempty" bson:"_id,omitempty"`
	Kind        ResourceKind   `json:"kind" bson:"kind"`
	Name        string         `json:"name" bson:"name"`
	Number      string         `json:"number,omitempty" bson:"number,omitempty"`
	Description string         `json:"description,omitempty" bson:"description,omitempty"`
	Capacity    int            `json:"capacity" bson:"capacity"`
	Rate        int64          `json:"rate" bson:"rate"`
	Status      ResourceStatus `json:"status" bson:"status"`
	IsActive    bool           `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

type ResourceFilter struct {
	Kind        ResourceKind
	MinCapacity int
}

func (k ResourceKind) Valid() bool {
	return k == KindRoom || k == KindHall || k == KindTable
}

// BookingPrefix is the domain prefix of booking numbers issued for this kind.
func (k ResourceKind) BookingPrefix() string {
	switch k {
	case KindHall:
		return "BH"
	case KindTable:
		return "RT"
	default:
		return "RB"
	}
}

// SlotBased kinds are priced per slot instead of per night.
func (k ResourceKind) SlotBased() bool {
	return k == KindTable
}

func (r *Resource) Bookable() bool {
	return r.IsActive && r.Status == ResourceAvailable
}

// Availability answers whether a resource is free for an interval at query time.
type Availability struct {
	ResourceID string    `json:"resource_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Available  bool      `json:"available"`
	Bookable   bool      `json:"bookable"`
}

package model

import (
	"slices"
	"time"
)

type BookingType string

const (
	BookingFull    BookingType = "full"
	BookingPartial BookingType = "partial"
)

type Booking struct {
	ID                 string        `json:"id,omitempty" bson:"_id,omitempty"`
	BookingNumber      string        `json:"booking_number" bson:"booking_number"`
	Kind               ResourceKind  `json:"kind" bson:"kind"`
	ResourceID         string        `json:"resource_id" bson:"resource_id"`
	OwnerID            string        `json:"owner_id" bson:"owner_id"`
	CheckIn            time.Time     `json:"check_in" bson:"check_in"`
	CheckOut           time.Time     `json:"check_out" bson:"check_out"`
	Date               string        `json:"date,omitempty" bson:"date,omitempty"`
	TimeSlot           TimeSlot      `json:"time_slot,omitempty" bson:"time_slot,omitempty"`
	NumberOfGuests     int           `json:"number_of_guests" bson:"number_of_guests"`
	Rate               int64         `json:"rate" bson:"rate"`
	Nights             int           `json:"nights,omitempty" bson:"nights,omitempty"`
	TotalPrice         int64         `json:"total_price" bson:"total_price"`
	PaidAmount         int64         `json:"paid_amount" bson:"paid_amount"`
	BookingType        BookingType   `json:"booking_type" bson:"booking_type"`
	Status             BookingStatus `json:"status" bson:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" bson:"payment_status"`
	TransactionID      string        `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	SpecialRequests    string        `json:"special_requests,omitempty" bson:"special_requests,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	RefundReason       string        `json:"refund_reason,omitempty" bson:"refund_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the guest-facing input for a new booking. Rooms and halls
// send CheckIn/CheckOut; tables send Date and TimeSlot.
type BookingRequest struct {
	ResourceID      string      `json:"resource_id" validate:"required,mongodb"`
	CheckIn         *time.Time  `json:"check_in,omitempty"`
	CheckOut        *time.Time  `json:"check_out,omitempty"`
	Date            string      `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TimeSlot        TimeSlot    `json:"time_slot,omitempty" validate:"omitempty,oneof=breakfast lunch dinner"`
	NumberOfGuests  int         `json:"number_of_guests" validate:"required,min=1,max=1000"`
	Rate            int64       `json:"rate,omitempty" validate:"omitempty,min=1"`
	BookingType     BookingType `json:"booking_type,omitempty" validate:"omitempty,oneof=full partial"`
	SpecialRequests string      `json:"special_requests,omitempty" validate:"omitempty,max=500"`
}

// PriceBreakdown is returned to the guest alongside a created booking.
type PriceBreakdown struct {
	Rate        int64       `json:"rate"`
	Nights      int         `json:"nights,omitempty"`
	TotalPrice  int64       `json:"total_price"`
	PayableNow  int64       `json:"payable_now"`
	BookingType BookingType `json:"booking_type"`
	Currency    string      `json:"currency,omitempty"`
}

type BookingCreated struct {
	ID            string         `json:"id"`
	BookingNumber string         `json:"booking_number"`
	Status        BookingStatus  `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	CheckIn       time.Time      `json:"check_in"`
	CheckOut      time.Time      `json:"check_out"`
	Price         PriceBreakdown `json:"price"`
}

type StatusUpdate struct {
	Status BookingStatus `json:"status" validate:"required,booking_status"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type PaymentRecord struct {
	Amount        int64  `json:"amount" validate:"required,min=1"`
	TransactionID string `json:"transaction_id" validate:"required,min=1,max=128"`
}

// BookingFilter narrows admin and owner listings. Empty fields match everything.
type BookingFilter struct {
	OwnerID    string
	ResourceID string
	Status     BookingStatus
}

// BookingCondition is the precondition half of a compare-and-set update.
// Empty slices match any value.
type BookingCondition struct {
	Statuses        []BookingStatus
	PaymentStatuses []PaymentStatus
	PaidAmount      *int64
	TransactionID   *string
}

// BookingPatch lists the fields a compare-and-set update writes. Nil fields are left alone.
type BookingPatch struct {
	Status             *BookingStatus
	PaymentStatus      *PaymentStatus
	PaidAmount         *int64
	TransactionID      *string
	CancellationReason *string
	RefundReason       *string
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.CheckIn, End: b.CheckOut}
}

func (b *Booking) OwnedBy(userID string) bool {
	return userID != "" && b.OwnerID == userID
}

// Apply copies the non-nil patch fields onto b.
func (p BookingPatch) Apply(b *Booking) {
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.PaidAmount != nil {
		b.PaidAmount = *p.PaidAmount
	}
	if p.TransactionID != nil {
		b.TransactionID = *p.TransactionID
	}
	if p.CancellationReason != nil {
		b.CancellationReason = *p.CancellationReason
	}
	if p.RefundReason != nil {
		b.RefundReason = *p.RefundReason
	}
}

// Matches reports whether b satisfies every populated field of c.
func (c BookingCondition) Matches(b *Booking) bool {
	if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, b.Status) {
		return false
	}
	if len(c.PaymentStatuses) > 0 && !slices.Contains(c.PaymentStatuses, b.PaymentStatus) {
		return false
	}
	if c.PaidAmount != nil && b.PaidAmount != *c.PaidAmount {
		return false
	}
	if c.TransactionID != nil && b.TransactionID != *c.TransactionID {
		return false
	}
	return true
}

func Ptr[T any](v T) *T {
	return &v
}

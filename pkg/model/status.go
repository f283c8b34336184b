package model

import "slices"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no-show"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// BlockingStatuses hold a resource's interval against other bookings.
var BlockingStatuses = []BookingStatus{StatusPending, StatusConfirmed}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Blocks reports whether a booking in this status occupies its interval.
func (s BookingStatus) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether an administrator may move a booking from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return slices.Contains(bookingTransitions[s], next)
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPartial, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Settled reports whether money has moved for good on the booking, in either direction.
func (p PaymentStatus) Settled() bool {
	return p == PaymentCompleted || p == PaymentRefunded
}

// Unsettled are the payment states a capture or a failure may still overwrite.
var Unsettled = []PaymentStatus{PaymentPending, PaymentPartial, PaymentFailed}

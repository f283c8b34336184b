package model

import (
	"encoding/json"
	"time"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
)

type OrderRequest struct {
	BookingID string `json:"booking_id" validate:"required,mongodb"`
	Amount    int64  `json:"amount" validate:"required,min=1"`
}

// Order is the client-facing handle of a gateway order. Amount is in major
// units, AmountMinor in the gateway's minor unit.
type Order struct {
	OrderID     string `json:"order_id"`
	BookingID   string `json:"booking_id"`
	Amount      int64  `json:"amount"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	KeyID       string `json:"key_id"`
	Provider    string `json:"provider"`
}

type CallbackRequest struct {
	OrderID   string `json:"order_id" validate:"required,max=128"`
	PaymentID string `json:"payment_id" validate:"required,max=128"`
	Signature string `json:"signature" validate:"required,max=256"`
	BookingID string `json:"booking_id" validate:"required,mongodb"`
}

// CallbackResult reports the outcome of a client callback. A signature
// mismatch is carried in Code/Message rather than as a request failure.
type CallbackResult struct {
	Verified      bool          `json:"verified"`
	BookingID     string        `json:"booking_id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Code          string        `json:"code,omitempty"`
	Message       string        `json:"message,omitempty"`
}

type RefundRequest struct {
	BookingID string `json:"booking_id" validate:"required,mongodb"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

type RefundResult struct {
	BookingID         string        `json:"booking_id"`
	Amount            int64         `json:"amount"`
	RefundID          string        `json:"refund_id,omitempty"`
	Status            BookingStatus `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	UpstreamConfirmed bool          `json:"upstream_confirmed"`
	Note              string        `json:"note,omitempty"`
}

// WebhookEnvelope is the gateway event shape: {event, payload:{payment:{entity}}}.
type WebhookEnvelope struct {
	Event     string         `json:"event"`
	AccountID string         `json:"account_id,omitempty"`
	CreatedAt int64          `json:"created_at,omitempty"`
	Payload   WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment *EntityWrapper[PaymentEntity] `json:"payment,omitempty"`
	Refund  *EntityWrapper[RefundEntity]  `json:"refund,omitempty"`
}

type EntityWrapper[T any] struct {
	Entity T `json:"entity"`
}

type PaymentEntity struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id,omitempty"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Status      string          `json:"status,omitempty"`
	ErrorReason string          `json:"error_reason,omitempty"`
	Notes       json.RawMessage `json:"notes,omitempty"`
}

type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

// BookingIDNote extracts notes.booking_id. Gateways send notes as either an
// object or an empty array, so decoding failures are treated as absent.
func (p PaymentEntity) BookingIDNote() string {
	if len(p.Notes) == 0 {
		return ""
	}
	var notes map[string]any
	if err := json.Unmarshal(p.Notes, &notes); err != nil {
		return ""
	}
	if id, ok := notes["booking_id"].(string); ok {
		return id
	}
	return ""
}

type WebhookResult struct {
	Event     string `json:"event"`
	EventID   string `json:"event_id,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// PaymentEvent is the audit record of one verified webhook delivery.
type PaymentEvent struct {
	ID         string    `json:"id" bson:"_id"`
	Event      string    `json:"event" bson:"event"`
	PaymentID  string    `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	BookingID  string    `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	Applied    bool      `json:"applied" bson:"applied"`
	Processed  bool      `json:"processed" bson:"processed"`
	Deliveries int       `json:"deliveries" bson:"deliveries"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
	LastSeenAt time.Time `json:"last_seen_at" bson:"last_seen_at"`
}

// Reconciliation flags a booking whose local payment state may disagree with the gateway.
type Reconciliation struct {
	BookingID     string    `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	Error         string    `json:"error,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const (
	ReconcileRefundFailed      = "refund_failed"
	ReconcileCaptureAfterClose = "capture_after_close"
)

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingsrepo "maharaja/internal/bookings/repository"
	"maharaja/internal/bookings/validator"
	"maharaja/internal/events"
	"maharaja/internal/payments/gateway"
	"maharaja/internal/payments/repository"
	"maharaja/internal/payments/signature"
	"maharaja/pkg/config"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/logger"
	"maharaja/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keySecret     = "rzp_test_secret"
	webhookSecret = "whsec_test"
	ownerID       = "user-guest"
)

var (
	owner    = model.Requester{ID: ownerID, Role: model.RoleGuest}
	stranger = model.Requester{ID: "user-other", Role: model.RoleGuest}
	admin    = model.Requester{ID: "user-admin", Role: model.RoleAdmin}
)

type fixture struct {
	service  *settlementService
	bookings *bookingsrepo.MemoryBookingRepository
	events   *repository.MemoryPaymentEventRepository
	gateway  *gateway.MockGateway
	recorder *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	cfg := &config.Config{
		Log:               log,
		PaymentProvider:   config.ProviderMock,
		PaymentCurrency:   "INR",
		GatewayTimeout:    time.Second,
		RazorpayKeyID:     "rzp_test_key",
		RazorpayKeySecret: keySecret,
		WebhookSecret:     webhookSecret,
	}

	f := &fixture{
		bookings: bookingsrepo.NewMemoryBookingRepository(),
		events:   repository.NewMemoryPaymentEventRepository(),
		gateway:  gateway.NewMockGateway(),
		recorder: events.NewRecorder(),
	}
	f.service = &settlementService{
		bookings:  f.bookings,
		events:    f.events,
		gateway:   f.gateway,
		validator: validator.NewBookingValidator(log),
		publisher: f.recorder,
		cfg:       cfg,
		now:       time.Now,
	}
	return f
}

var seedCounter int

func (f *fixture) seed(t *testing.T, mutate func(b *model.Booking)) *model.Booking {
	t.Helper()
	seedCounter++

	checkIn := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, seedCounter*3)
	b := &model.Booking{
		BookingNumber: fmt.Sprintf("RB-%d-%04d", checkIn.UnixMilli(), seedCounter),
		Kind:          model.KindRoom,
		ResourceID:    "665f1f77bcf86cd799439011",
		OwnerID:       ownerID,
		CheckIn:       checkIn,
		CheckOut:      checkIn.AddDate(0, 0, 2),
		Rate:          1000,
		Nights:        2,
		TotalPrice:    2000,
		BookingType:   model.BookingFull,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentPending,
	}
	if mutate != nil {
		mutate(b)
	}
	require.NoError(t, f.bookings.Create(context.Background(), b))
	return b
}

func (f *fixture) get(t *testing.T, id string) *model.Booking {
	t.Helper()
	b, err := f.bookings.FindByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func webhookBody(t *testing.T, event, paymentID, bookingID string) []byte {
	t.Helper()

	entity := map[string]any{"id": paymentID, "amount": 200000, "currency": "INR"}
	if bookingID != "" {
		entity["notes"] = map[string]string{"booking_id": bookingID}
	} else {
		entity["notes"] = []string{}
	}
	payload := map[string]any{"payment": map[string]any{"entity": entity}}
	if event == model.EventRefundCreated {
		payload["refund"] = map[string]any{"entity": map[string]any{
			"id": "rfnd_1", "payment_id": paymentID, "amount": 200000,
		}}
	}

	body, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	require.NoError(t, err)
	return body
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, nil)

	order, err := f.service.CreateOrder(context.Background(), owner, &model.OrderRequest{BookingID: b.ID, Amount: 2000})
	require.NoError(t, err)

	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, int64(200000), order.AmountMinor)
	assert.Equal(t, "rzp_test_key", order.KeyID)
	assert.Equal(t, b.BookingNumber, order.Receipt)
	assert.Equal(t, gateway.ProviderMock, order.Provider)

	// Order creation never touches the booking.
	stored := f.get(t, b.ID)
	assert.Equal(t, model.PaymentPending, stored.PaymentStatus)
	assert.Empty(t, f.recorder.Types())
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := newFixture(t)
	pending := f.seed(t, nil)
	cancelled := f.seed(t, func(b *model.Booking) { b.Status = model.StatusCancelled })
	paid := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
	})

	tests := []struct {
		name      string
		requester model.Requester
		req       *model.OrderRequest
		code      string
	}{
		{"missing booking", owner, &model.OrderRequest{BookingID: "665f1f77bcf86cd7994390ff", Amount: 100}, apperrors.CodeNotFound},
		{"bad id", owner, &model.OrderRequest{BookingID: "nope", Amount: 100}, apperrors.CodeValidation},
		{"zero amount", owner, &model.OrderRequest{BookingID: pending.ID}, apperrors.CodeValidation},
		{"stranger", stranger, &model.OrderRequest{BookingID: pending.ID, Amount: 100}, apperrors.CodeForbidden},
		{"over total", owner, &model.OrderRequest{BookingID: pending.ID, Amount: 2001}, apperrors.CodeValidation},
		{"cancelled", owner, &model.OrderRequest{BookingID: cancelled.ID, Amount: 100}, apperrors.CodeAlreadyTerminal},
		{"already paid", admin, &model.OrderRequest{BookingID: paid.ID, Amount: 100}, apperrors.CodePrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateOrder(context.Background(), tt.requester, tt.req)
			assertCode(t, err, tt.code)
		})
	}
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, nil)
	f.gateway.FailCreateOrder = errors.New("upstream unavailable")

	_, err := f.service.CreateOrder(context.Background(), owner, &model.OrderRequest{BookingID: b.ID, Amount: 2000})
	assertCode(t, err, apperrors.CodeGateway)
	assert.Equal(t, 502, apperrors.AsAppError(err).StatusCode())
}

func TestVerifyClientCallback_Match(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, nil)

	sig := signature.Sign(keySecret, signature.CallbackPayload("order_1", "pay_1"))
	result, err := f.service.VerifyClientCallback(context.Background(), owner, &model.CallbackRequest{
		OrderID: "order_1", PaymentID: "pay_1", Signature: sig, BookingID: b.ID,
	})
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, model.StatusConfirmed, result.Status)
	assert.Equal(t, model.PaymentCompleted, result.PaymentStatus)

	stored := f.get(t, b.ID)
	assert.Equal(t, "pay_1", stored.TransactionID)
	assert.Equal(t, int64(2000), stored.PaidAmount)
	assert.Equal(t, []string{events.BookingPaymentRecorded, events.BookingConfirmed}, f.recorder.Types())
}

func TestVerifyClientCallback_Mismatch(t *testing.T) {
	tests := []struct {
		name    string
		status  model.BookingStatus
		payment model.PaymentStatus
	}{
		{"pending booking", model.StatusPending, model.PaymentPending},
		{"confirmed with partial payment", model.StatusConfirmed, model.PaymentPartial},
		{"confirmed with pending payment", model.StatusConfirmed, model.PaymentPending},
		{"confirmed after earlier failure", model.StatusConfirmed, model.PaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.seed(t, func(b *model.Booking) {
				b.Status = tt.status
				b.PaymentStatus = tt.payment
			})

			sig := signature.Sign(keySecret, signature.CallbackPayload("order_1", "pay_1"))
			result, err := f.service.VerifyClientCallback(context.Background(), owner, &model.CallbackRequest{
				OrderID: "order_1", PaymentID: "pay_2", Signature: sig, BookingID: b.ID,
			})
			require.NoError(t, err)

			assert.False(t, result.Verified)
			assert.Equal(t, apperrors.CodeSignatureMismatch, result.Code)
			assert.Equal(t, model.StatusPending, result.Status)
			assert.Equal(t, model.PaymentFailed, result.PaymentStatus)

			stored := f.get(t, b.ID)
			assert.Equal(t, model.StatusPending, stored.Status)
			assert.Equal(t, model.PaymentFailed, stored.PaymentStatus)
			assert.Empty(t, stored.TransactionID)
		})
	}
}

func TestVerifyClientCallback_MismatchNeverDowngrades(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_1"
	})

	result, err := f.service.VerifyClientCallback(context.Background(), owner, &model.CallbackRequest{
		OrderID: "order_1", PaymentID: "pay_1", Signature: "deadbeef", BookingID: b.ID,
	})
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, model.PaymentCompleted, result.PaymentStatus)
	assert.Equal(t, model.StatusConfirmed, f.get(t, b.ID).Status)
}

func TestVerifyClientCallback_Forbidden(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, nil)

	_, err := f.service.VerifyClientCallback(context.Background(), stranger, &model.CallbackRequest{
		OrderID: "order_1", PaymentID: "pay_1", Signature: "00", BookingID: b.ID,
	})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestHandleWebhook_CapturedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) { b.TransactionID = "pay_1" })
	body := webhookBody(t, model.EventPaymentCaptured, "pay_1", "")
	sig := signature.Sign(webhookSecret, body)

	first, err := f.service.HandleWebhook(context.Background(), body, sig, "evt_1")
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, b.ID, first.BookingID)
	afterFirst := f.get(t, b.ID)

	second, err := f.service.HandleWebhook(context.Background(), body, sig, "evt_1")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, b.ID, second.BookingID)

	afterSecond := f.get(t, b.ID)
	assert.Equal(t, afterFirst, afterSecond)
	assert.Equal(t, model.StatusConfirmed, afterSecond.Status)
	assert.Equal(t, model.PaymentCompleted, afterSecond.PaymentStatus)
	assert.Len(t, f.recorder.Types(), 2)

	stored, err := f.events.FindByID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Deliveries)
}

func TestHandleWebhook_DigestIdentifiesDelivery(t *testing.T) {
	f := newFixture(t)
	f.seed(t, func(b *model.Booking) { b.TransactionID = "pay_1" })
	body := webhookBody(t, model.EventPaymentCaptured, "pay_1", "")
	sig := signature.Sign(webhookSecret, body)

	first, err := f.service.HandleWebhook(context.Background(), body, sig, "")
	require.NoError(t, err)
	second, err := f.service.HandleWebhook(context.Background(), body, sig, "")
	require.NoError(t, err)

	assert.Len(t, first.EventID, 64)
	assert.Equal(t, first.EventID, second.EventID)
	assert.True(t, second.Duplicate)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) { b.TransactionID = "pay_1" })
	body := webhookBody(t, model.EventPaymentCaptured, "pay_1", "")
	sig := signature.Sign(webhookSecret, body)

	mutated := append([]byte(nil), body...)
	mutated[len(mutated)-2] ^= 0x01

	_, err := f.service.HandleWebhook(context.Background(), mutated, sig, "evt_1")
	assertCode(t, err, apperrors.CodeInvalidSignature)

	_, err = f.service.HandleWebhook(context.Background(), body, "", "evt_1")
	assertCode(t, err, apperrors.CodeInvalidSignature)

	assert.Equal(t, model.PaymentPending, f.get(t, b.ID).PaymentStatus)
	_, err = f.events.FindByID(context.Background(), "evt_1")
	assert.Error(t, err)
}

func TestHandleWebhook_UnknownEventIsNoop(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) { b.TransactionID = "pay_1" })
	body := webhookBody(t, "order.paid", "pay_1", "")

	result, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_9")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, model.PaymentPending, f.get(t, b.ID).PaymentStatus)
	assert.Empty(t, f.recorder.Types())
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":`)

	_, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "")
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestHandleWebhook_BeforeCallbackConverges(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, nil)

	body := webhookBody(t, model.EventPaymentCaptured, "pay_7", b.ID)
	result, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_7")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	viaWebhook := f.get(t, b.ID)
	assert.Equal(t, "pay_7", viaWebhook.TransactionID)

	sig := signature.Sign(keySecret, signature.CallbackPayload("order_7", "pay_7"))
	callback, err := f.service.VerifyClientCallback(context.Background(), owner, &model.CallbackRequest{
		OrderID: "order_7", PaymentID: "pay_7", Signature: sig, BookingID: b.ID,
	})
	require.NoError(t, err)
	assert.True(t, callback.Verified)

	assert.Equal(t, viaWebhook, f.get(t, b.ID))
	assert.Equal(t, []string{events.BookingPaymentRecorded, events.BookingConfirmed}, f.recorder.Types())
}

func TestHandleWebhook_ConcurrentCallbackAndWebhook(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, nil)

	body := webhookBody(t, model.EventPaymentCaptured, "pay_8", b.ID)
	webhookSig := signature.Sign(webhookSecret, body)
	callbackSig := signature.Sign(keySecret, signature.CallbackPayload("order_8", "pay_8"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.service.HandleWebhook(context.Background(), body, webhookSig, "evt_8")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := f.service.VerifyClientCallback(context.Background(), owner, &model.CallbackRequest{
			OrderID: "order_8", PaymentID: "pay_8", Signature: callbackSig, BookingID: b.ID,
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	stored := f.get(t, b.ID)
	assert.Equal(t, model.StatusConfirmed, stored.Status)
	assert.Equal(t, model.PaymentCompleted, stored.PaymentStatus)
	assert.Equal(t, int64(2000), stored.PaidAmount)
	assert.Len(t, f.recorder.Types(), 2)
}

func TestHandleWebhook_CaptureAfterCancel(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) { b.Status = model.StatusCancelled })

	body := webhookBody(t, model.EventPaymentCaptured, "pay_3", b.ID)
	result, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_3")
	require.NoError(t, err)
	assert.False(t, result.Applied)

	stored := f.get(t, b.ID)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.Equal(t, model.PaymentPending, stored.PaymentStatus)

	require.Len(t, f.recorder.Reconciliations, 1)
	assert.Equal(t, model.ReconcileCaptureAfterClose, f.recorder.Reconciliations[0].Reason)
	assert.Equal(t, "pay_3", f.recorder.Reconciliations[0].TransactionID)
}

func TestHandleWebhook_Failed(t *testing.T) {
	f := newFixture(t)
	pending := f.seed(t, func(b *model.Booking) { b.TransactionID = "pay_4" })
	paid := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_5"
	})

	body := webhookBody(t, model.EventPaymentFailed, "pay_4", "")
	result, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_4")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, model.PaymentFailed, f.get(t, pending.ID).PaymentStatus)

	confirmed := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.TransactionID = "pay_6"
	})
	body = webhookBody(t, model.EventPaymentFailed, "pay_6", "")
	_, err = f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_6")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, f.get(t, confirmed.ID).Status, "a gateway failure event keeps the booking status")
	assert.Equal(t, model.PaymentFailed, f.get(t, confirmed.ID).PaymentStatus)

	body = webhookBody(t, model.EventPaymentFailed, "pay_5", "")
	result, err = f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_5")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, model.PaymentCompleted, f.get(t, paid.ID).PaymentStatus)
}

func TestHandleWebhook_RefundCreated(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_6"
	})

	body := webhookBody(t, model.EventRefundCreated, "pay_6", "")
	result, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_6")
	require.NoError(t, err)
	assert.True(t, result.Applied)

	stored := f.get(t, b.ID)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.Equal(t, model.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, []string{events.BookingRefunded}, f.recorder.Types())

	stay := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusCompleted
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_7"
	})
	body = webhookBody(t, model.EventRefundCreated, "pay_7", "")
	_, err = f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_7")
	require.NoError(t, err)
	stored = f.get(t, stay.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, model.PaymentRefunded, stored.PaymentStatus)
}

func TestHandleWebhook_UnmatchedPayment(t *testing.T) {
	f := newFixture(t)
	body := webhookBody(t, model.EventPaymentCaptured, "pay_unknown", "")

	result, err := f.service.HandleWebhook(context.Background(), body, signature.Sign(webhookSecret, body), "evt_u")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Empty(t, result.BookingID)
}

// Scenario C: the gateway refund fails but the booking is still refunded
// locally and flagged for reconciliation.
func TestRefund_GatewayFailureStillRefunds(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_10"
	})
	f.gateway.FailRefund = errors.New("upstream 503")

	result, err := f.service.Refund(context.Background(), owner, &model.RefundRequest{BookingID: b.ID, Reason: "plans changed"})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentRefunded, result.PaymentStatus)
	assert.Equal(t, model.StatusCancelled, result.Status)
	assert.Equal(t, int64(2000), result.Amount)
	assert.False(t, result.UpstreamConfirmed)
	assert.NotEmpty(t, result.Note)

	stored := f.get(t, b.ID)
	assert.Equal(t, model.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, "plans changed", stored.RefundReason)

	require.Len(t, f.recorder.Reconciliations, 1)
	rec := f.recorder.Reconciliations[0]
	assert.Equal(t, model.ReconcileRefundFailed, rec.Reason)
	assert.Equal(t, "pay_10", rec.TransactionID)
	assert.Equal(t, "upstream 503", rec.Error)
}

func TestRefund_Success(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_11"
	})

	result, err := f.service.Refund(context.Background(), admin, &model.RefundRequest{BookingID: b.ID})
	require.NoError(t, err)
	assert.True(t, result.UpstreamConfirmed)
	assert.NotEmpty(t, result.RefundID)

	refunds := f.gateway.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, "pay_11", refunds[0].PaymentID)
	assert.Equal(t, int64(200000), refunds[0].AmountMinor)
	assert.Empty(t, f.recorder.Reconciliations)
}

func TestRefund_TerminalBookingKeepsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status model.BookingStatus
		want   model.BookingStatus
	}{
		{"confirmed booking is cancelled", model.StatusConfirmed, model.StatusCancelled},
		{"completed stay stays completed", model.StatusCompleted, model.StatusCompleted},
		{"cancelled booking stays cancelled", model.StatusCancelled, model.StatusCancelled},
		{"no-show stays no-show", model.StatusNoShow, model.StatusNoShow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.seed(t, func(b *model.Booking) {
				b.Status = tt.status
				b.PaymentStatus = model.PaymentCompleted
				b.PaidAmount = 2000
				b.TransactionID = "pay_20"
			})

			result, err := f.service.Refund(context.Background(), admin, &model.RefundRequest{BookingID: b.ID, Reason: "goodwill"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)

			stored := f.get(t, b.ID)
			assert.Equal(t, tt.want, stored.Status)
			assert.Equal(t, model.PaymentRefunded, stored.PaymentStatus)
			assert.Len(t, f.gateway.Refunds(), 1)
		})
	}
}

func TestRefund_Preconditions(t *testing.T) {
	f := newFixture(t)
	partial := f.seed(t, func(b *model.Booking) {
		b.PaymentStatus = model.PaymentPartial
		b.PaidAmount = 200
	})
	refunded := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusCancelled
		b.PaymentStatus = model.PaymentRefunded
		b.TransactionID = "pay_12"
	})
	paid := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_13"
	})

	tests := []struct {
		name      string
		requester model.Requester
		bookingID string
		code      string
	}{
		{"partial payment", owner, partial.ID, apperrors.CodePrecondition},
		{"already refunded", owner, refunded.ID, apperrors.CodeAlreadyTerminal},
		{"stranger", stranger, paid.ID, apperrors.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Refund(context.Background(), tt.requester, &model.RefundRequest{BookingID: tt.bookingID})
			assertCode(t, err, tt.code)
		})
	}
	assert.Empty(t, f.gateway.Refunds())
}

func TestRefund_ConcurrentRequestsRefundOnce(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, func(b *model.Booking) {
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentCompleted
		b.PaidAmount = 2000
		b.TransactionID = "pay_14"
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Refund(context.Background(), owner, &model.RefundRequest{BookingID: b.ID}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.gateway.Refunds(), 1)
}

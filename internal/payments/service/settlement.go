package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	bookingserrors "maharaja/internal/bookings/errors"
	bookingsrepo "maharaja/internal/bookings/repository"
	"maharaja/internal/bookings/validator"
	"maharaja/internal/events"
	"maharaja/internal/payments/gateway"
	"maharaja/internal/payments/repository"
	"maharaja/internal/payments/signature"
	"maharaja/pkg/config"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/model"
	"maharaja/pkg/sanitizer"
	"maharaja/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

const maxSettleAttempts = 3

type SettlementService interface {
	CreateOrder(ctx context.Context, requester model.Requester, req *model.OrderRequest) (*model.Order, error)
	VerifyClientCallback(ctx context.Context, requester model.Requester, req *model.CallbackRequest) (*model.CallbackResult, error)
	// HandleWebhook applies one gateway event. eventID may be empty, in which
	// case the provider's event id or the body digest identifies the delivery.
	HandleWebhook(ctx context.Context, body []byte, sig string, eventID string) (*model.WebhookResult, error)
	Refund(ctx context.Context, requester model.Requester, req *model.RefundRequest) (*model.RefundResult, error)
}

type settlementService struct {
	bookings  bookingsrepo.BookingRepository
	events    repository.PaymentEventRepository
	gateway   gateway.Gateway
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewSettlementService(
	bookings bookingsrepo.BookingRepository,
	paymentEvents repository.PaymentEventRepository,
	gw gateway.Gateway,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) SettlementService {
	return &settlementService{
		bookings:  bookings,
		events:    paymentEvents,
		gateway:   gw,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *settlementService) CreateOrder(ctx context.Context, requester model.Requester, req *model.OrderRequest) (_ *model.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.CreateOrder", attribute.String("booking.id", req.BookingID))
	defer func() { telemetry.End(span, err) }()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	booking, err := s.find(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(booking.OwnerID) {
		return nil, apperrors.Forbidden("Only the booking owner or an administrator can pay for this booking")
	}
	if booking.Status.IsTerminal() {
		return nil, apperrors.AlreadyTerminal("Booking", string(booking.Status))
	}
	if booking.PaymentStatus.Settled() {
		return nil, apperrors.Precondition("Booking is already settled", map[string]any{
			"payment_status": booking.PaymentStatus,
		})
	}
	// PaidAmount is the amount committed at creation, not money received, so
	// the order is bounded by the booking total.
	if req.Amount > booking.TotalPrice {
		return nil, apperrors.Validation("Order amount exceeds the booking total", map[string]any{
			"amount":      req.Amount,
			"total_price": booking.TotalPrice,
		})
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	order, err := s.gateway.CreateOrder(gwCtx, gateway.OrderParams{
		AmountMinor: gateway.MinorUnits(req.Amount),
		Currency:    s.cfg.PaymentCurrency,
		Receipt:     booking.BookingNumber,
		Notes: map[string]string{
			"booking_id":     booking.ID,
			"booking_number": booking.BookingNumber,
		},
	})
	if err != nil {
		s.cfg.Log.Error("Gateway order creation failed",
			"booking_id", booking.ID,
			"provider", s.gateway.Name(),
			"error", err,
		)
		return nil, apperrors.Gateway(s.gateway.Name(), err)
	}

	s.cfg.Log.Info("Payment order created successfully",
		"booking_id", booking.ID,
		"order_id", order.ID,
		"amount", req.Amount,
	)

	return &model.Order{
		OrderID:     order.ID,
		BookingID:   booking.ID,
		Amount:      req.Amount,
		AmountMinor: order.AmountMinor,
		Currency:    s.cfg.PaymentCurrency,
		Receipt:     booking.BookingNumber,
		KeyID:       s.cfg.PublicKey(),
		Provider:    s.gateway.Name(),
	}, nil
}

func (s *settlementService) VerifyClientCallback(ctx context.Context, requester model.Requester, req *model.CallbackRequest) (_ *model.CallbackResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.VerifyClientCallback",
		attribute.String("booking.id", req.BookingID),
		attribute.String("payment.id", req.PaymentID),
	)
	defer func() { telemetry.End(span, err) }()

	req.OrderID = sanitizer.SanitizeReference(req.OrderID)
	req.PaymentID = sanitizer.SanitizeReference(req.PaymentID)
	if err := s.validate(req); err != nil {
		return nil, err
	}
	booking, err := s.find(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(booking.OwnerID) {
		return nil, apperrors.Forbidden("Only the booking owner or an administrator can confirm this payment")
	}

	if !signature.Verify(s.cfg.SigningSecret(), signature.CallbackPayload(req.OrderID, req.PaymentID), req.Signature) {
		s.cfg.Log.Warn("Payment callback signature mismatch",
			"booking_id", booking.ID,
			"order_id", req.OrderID,
			"payment_id", req.PaymentID,
		)
		updated, err := s.markFailed(ctx, booking, true)
		if err != nil {
			return nil, err
		}
		mismatch := apperrors.SignatureMismatch("Payment signature could not be verified")
		return &model.CallbackResult{
			Verified:      false,
			BookingID:     updated.ID,
			Status:        updated.Status,
			PaymentStatus: updated.PaymentStatus,
			Code:          mismatch.Code,
			Message:       mismatch.Message,
		}, nil
	}

	updated, applied, err := s.capture(ctx, booking, req.PaymentID)
	if err != nil {
		return nil, err
	}

	result := &model.CallbackResult{
		Verified:      true,
		BookingID:     updated.ID,
		Status:        updated.Status,
		PaymentStatus: updated.PaymentStatus,
	}
	if !applied && !updated.Status.Blocks() && !updated.PaymentStatus.Settled() {
		result.Message = "Booking was closed before the payment completed and has been flagged for reconciliation"
	}
	return result, nil
}

func (s *settlementService) HandleWebhook(ctx context.Context, body []byte, sig string, eventID string) (_ *model.WebhookResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.HandleWebhook")
	defer func() { telemetry.End(span, err) }()

	envelope, providerEventID, err := s.decodeWebhook(body, sig)
	if err != nil {
		return nil, err
	}

	if eventID == "" {
		eventID = providerEventID
	}
	if eventID == "" {
		digest := sha256.Sum256(body)
		eventID = hex.EncodeToString(digest[:])
	}
	span.SetAttributes(attribute.String("webhook.event", envelope.Event), attribute.String("webhook.id", eventID))

	record := &model.PaymentEvent{ID: eventID, Event: envelope.Event}
	if p := envelope.Payload.Payment; p != nil {
		record.PaymentID = p.Entity.ID
		record.BookingID = p.Entity.BookingIDNote()
	}

	prior, err := s.events.Begin(ctx, record)
	if err != nil {
		s.cfg.Log.Error("Failed to record webhook delivery", "event_id", eventID, "error", err)
		return nil, apperrors.Internal("Failed to record webhook delivery", err)
	}
	if prior != nil && prior.Processed {
		s.cfg.Log.Info("Webhook redelivery ignored",
			"event_id", eventID,
			"event", envelope.Event,
			"deliveries", prior.Deliveries+1,
		)
		return &model.WebhookResult{
			Event:     envelope.Event,
			EventID:   eventID,
			BookingID: prior.BookingID,
			Applied:   prior.Applied,
			Duplicate: true,
		}, nil
	}

	var booking *model.Booking
	var applied bool
	switch envelope.Event {
	case model.EventPaymentCaptured:
		booking, applied, err = s.onCaptured(ctx, envelope.Payload.Payment)
	case model.EventPaymentFailed:
		booking, applied, err = s.onFailed(ctx, envelope.Payload.Payment)
	case model.EventRefundCreated:
		booking, applied, err = s.onRefundCreated(ctx, envelope.Payload)
	default:
		s.cfg.Log.Info("Ignoring unhandled webhook event", "event", envelope.Event, "event_id", eventID)
	}
	if err != nil {
		return nil, err
	}

	result := &model.WebhookResult{Event: envelope.Event, EventID: eventID, Applied: applied}
	if booking != nil {
		result.BookingID = booking.ID
	}

	if err := s.events.Complete(ctx, eventID, result.BookingID, applied); err != nil {
		// The effect is already applied; a redelivery re-runs the idempotent transition.
		s.cfg.Log.Error("Failed to complete webhook delivery", "event_id", eventID, "error", err)
	}

	s.cfg.Log.Info("Webhook processed successfully",
		"event", envelope.Event,
		"event_id", eventID,
		"booking_id", result.BookingID,
		"applied", applied,
	)
	return result, nil
}

func (s *settlementService) Refund(ctx context.Context, requester model.Requester, req *model.RefundRequest) (_ *model.RefundResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payments.Refund", attribute.String("booking.id", req.BookingID))
	defer func() { telemetry.End(span, err) }()

	req.Reason = sanitizer.SanitizeFreeText(req.Reason)
	if err := s.validate(req); err != nil {
		return nil, err
	}
	booking, err := s.find(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(booking.OwnerID) {
		return nil, apperrors.Forbidden("Only the booking owner or an administrator can request a refund")
	}
	if err := refundable(booking); err != nil {
		return nil, err
	}

	amount := booking.PaidAmount
	// A refund closes a live booking; terminal bookings keep their status and
	// only the payment moves.
	patch := model.BookingPatch{
		PaymentStatus: model.Ptr(model.PaymentRefunded),
		RefundReason:  model.Ptr(req.Reason),
	}
	if booking.Status.Blocks() {
		patch.Status = model.Ptr(model.StatusCancelled)
	}
	updated, err := s.bookings.ApplyTransition(ctx, booking.ID,
		model.BookingCondition{
			Statuses:        []model.BookingStatus{booking.Status},
			PaymentStatuses: []model.PaymentStatus{model.PaymentCompleted},
			TransactionID:   model.Ptr(booking.TransactionID),
		},
		patch,
	)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStaleState) {
			current, findErr := s.find(ctx, booking.ID)
			if findErr != nil {
				return nil, findErr
			}
			if err := refundable(current); err != nil {
				return nil, err
			}
		}
		return nil, s.translateWriteErr(err, booking.ID, "refund booking")
	}

	s.publisher.PublishBooking(ctx, events.BookingRefunded, updated)

	result := &model.RefundResult{
		BookingID:     updated.ID,
		Amount:        amount,
		Status:        updated.Status,
		PaymentStatus: updated.PaymentStatus,
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	refund, gwErr := s.gateway.Refund(gwCtx, updated.TransactionID, gateway.MinorUnits(amount), map[string]string{
		"booking_id":     updated.ID,
		"booking_number": updated.BookingNumber,
		"reason":         req.Reason,
	})
	if gwErr != nil {
		s.cfg.Log.Error("Gateway refund failed, booking refunded locally",
			"booking_id", updated.ID,
			"transaction_id", updated.TransactionID,
			"amount", amount,
			"provider", s.gateway.Name(),
			"error", gwErr,
		)
		s.publisher.PublishReconciliation(ctx, model.Reconciliation{
			BookingID:     updated.ID,
			BookingNumber: updated.BookingNumber,
			TransactionID: updated.TransactionID,
			Amount:        amount,
			Reason:        model.ReconcileRefundFailed,
			Error:         gwErr.Error(),
			OccurredAt:    s.now().UTC(),
		})
		result.Note = "Refund recorded; the gateway refund did not complete and has been queued for reconciliation"
		return result, nil
	}

	result.RefundID = refund.ID
	result.UpstreamConfirmed = true

	s.cfg.Log.Info("Booking refunded successfully",
		"booking_id", updated.ID,
		"refund_id", refund.ID,
		"amount", amount,
	)
	return result, nil
}

func (s *settlementService) onCaptured(ctx context.Context, payment *model.EntityWrapper[model.PaymentEntity]) (*model.Booking, bool, error) {
	if payment == nil || payment.Entity.ID == "" {
		s.cfg.Log.Warn("Captured webhook has no payment entity")
		return nil, false, nil
	}
	booking, err := s.locate(ctx, payment.Entity.ID, payment.Entity.BookingIDNote())
	if err != nil || booking == nil {
		return nil, false, err
	}
	return s.capture(ctx, booking, payment.Entity.ID)
}

func (s *settlementService) onFailed(ctx context.Context, payment *model.EntityWrapper[model.PaymentEntity]) (*model.Booking, bool, error) {
	if payment == nil || payment.Entity.ID == "" {
		s.cfg.Log.Warn("Failed-payment webhook has no payment entity")
		return nil, false, nil
	}
	booking, err := s.locate(ctx, payment.Entity.ID, payment.Entity.BookingIDNote())
	if err != nil || booking == nil {
		return nil, false, err
	}
	before := booking.PaymentStatus
	updated, err := s.markFailed(ctx, booking, false)
	if err != nil {
		return nil, false, err
	}
	return updated, before != model.PaymentFailed && updated.PaymentStatus == model.PaymentFailed, nil
}

func (s *settlementService) onRefundCreated(ctx context.Context, payload model.WebhookPayload) (*model.Booking, bool, error) {
	var paymentID, bookingNote string
	if payload.Refund != nil {
		paymentID = payload.Refund.Entity.PaymentID
	}
	if payload.Payment != nil {
		if paymentID == "" {
			paymentID = payload.Payment.Entity.ID
		}
		bookingNote = payload.Payment.Entity.BookingIDNote()
	}
	if paymentID == "" {
		s.cfg.Log.Warn("Refund webhook has no payment reference")
		return nil, false, nil
	}

	booking, err := s.locate(ctx, paymentID, bookingNote)
	if err != nil || booking == nil {
		return nil, false, err
	}

	for attempt := 0; attempt < maxSettleAttempts; attempt++ {
		if booking.PaymentStatus == model.PaymentRefunded {
			return booking, false, nil
		}
		patch := model.BookingPatch{PaymentStatus: model.Ptr(model.PaymentRefunded)}
		if booking.Status.Blocks() {
			patch.Status = model.Ptr(model.StatusCancelled)
		}
		updated, err := s.bookings.ApplyTransition(ctx, booking.ID,
			model.BookingCondition{
				Statuses: []model.BookingStatus{booking.Status},
				PaymentStatuses: []model.PaymentStatus{
					model.PaymentPending, model.PaymentPartial, model.PaymentCompleted, model.PaymentFailed,
				},
			},
			patch,
		)
		if err == nil {
			s.publisher.PublishBooking(ctx, events.BookingRefunded, updated)
			return updated, true, nil
		}
		if !errors.Is(err, bookingserrors.ErrStaleState) {
			return nil, false, s.translateWriteErr(err, booking.ID, "apply refund")
		}
		if booking, err = s.find(ctx, booking.ID); err != nil {
			return nil, false, err
		}
	}
	return nil, false, apperrors.Conflict("Booking was updated concurrently, please retry")
}

// capture settles b with paymentID. It is a no-op when b already carries that
// payment or a more final state, so callback and webhook deliveries commute.
func (s *settlementService) capture(ctx context.Context, b *model.Booking, paymentID string) (*model.Booking, bool, error) {
	for attempt := 0; attempt < maxSettleAttempts; attempt++ {
		if b.PaymentStatus.Settled() {
			if b.TransactionID != paymentID {
				s.cfg.Log.Warn("Capture for a booking settled by another payment",
					"booking_id", b.ID,
					"transaction_id", b.TransactionID,
					"payment_id", paymentID,
				)
			}
			return b, false, nil
		}
		if !b.Status.Blocks() {
			s.cfg.Log.Warn("Payment captured after booking closed",
				"booking_id", b.ID,
				"status", b.Status,
				"payment_id", paymentID,
			)
			s.publisher.PublishReconciliation(ctx, model.Reconciliation{
				BookingID:     b.ID,
				BookingNumber: b.BookingNumber,
				TransactionID: paymentID,
				Amount:        b.TotalPrice,
				Reason:        model.ReconcileCaptureAfterClose,
				OccurredAt:    s.now().UTC(),
			})
			return b, false, nil
		}

		wasConfirmed := b.Status == model.StatusConfirmed
		updated, err := s.bookings.ApplyTransition(ctx, b.ID,
			model.BookingCondition{
				Statuses:        model.BlockingStatuses,
				PaymentStatuses: model.Unsettled,
			},
			model.BookingPatch{
				Status:        model.Ptr(model.StatusConfirmed),
				PaymentStatus: model.Ptr(model.PaymentCompleted),
				PaidAmount:    model.Ptr(b.TotalPrice),
				TransactionID: model.Ptr(paymentID),
			},
		)
		if err == nil {
			s.publisher.PublishBooking(ctx, events.BookingPaymentRecorded, updated)
			if !wasConfirmed {
				s.publisher.PublishBooking(ctx, events.BookingConfirmed, updated)
			}
			s.cfg.Log.Info("Payment captured successfully",
				"booking_id", updated.ID,
				"payment_id", paymentID,
				"amount", updated.PaidAmount,
			)
			return updated, true, nil
		}
		if !errors.Is(err, bookingserrors.ErrStaleState) {
			return nil, false, s.translateWriteErr(err, b.ID, "capture payment")
		}
		if b, err = s.find(ctx, b.ID); err != nil {
			return nil, false, err
		}
	}
	return nil, false, apperrors.Conflict("Booking was updated concurrently, please retry")
}

// markFailed records a failed attempt unless the booking already settled or closed.
// markFailed records a failed payment on a blocking, unsettled booking. With
// reopen the booking also returns to pending, which is what a rejected client
// callback demands; settled or closed bookings are never touched.
func (s *settlementService) markFailed(ctx context.Context, b *model.Booking, reopen bool) (*model.Booking, error) {
	if b.PaymentStatus.Settled() || !b.Status.Blocks() {
		return b, nil
	}
	if b.PaymentStatus == model.PaymentFailed && (!reopen || b.Status == model.StatusPending) {
		return b, nil
	}

	patch := model.BookingPatch{PaymentStatus: model.Ptr(model.PaymentFailed)}
	if reopen {
		patch.Status = model.Ptr(model.StatusPending)
	}
	updated, err := s.bookings.ApplyTransition(ctx, b.ID,
		model.BookingCondition{
			Statuses:        model.BlockingStatuses,
			PaymentStatuses: model.Unsettled,
		},
		patch,
	)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStaleState) {
			// Someone settled or closed it first; that state wins.
			return s.find(ctx, b.ID)
		}
		return nil, s.translateWriteErr(err, b.ID, "record failed payment")
	}
	s.cfg.Log.Info("Payment failure recorded", "booking_id", updated.ID, "status", updated.Status)
	return updated, nil
}

// locate resolves a gateway payment to a booking, first by recorded
// transaction id and then by the booking id noted on the order. A nil
// booking means the event matches nothing here.
func (s *settlementService) locate(ctx context.Context, paymentID, bookingNote string) (*model.Booking, error) {
	booking, err := s.bookings.FindByTransactionID(ctx, paymentID)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to look up booking by transaction", "payment_id", paymentID, "error", err)
		return nil, apperrors.Internal("Failed to look up booking", err)
	}

	if bookingNote == "" {
		s.cfg.Log.Warn("Webhook payment matches no booking", "payment_id", paymentID)
		return nil, nil
	}
	booking, err = s.bookings.FindByID(ctx, bookingNote)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			s.cfg.Log.Warn("Webhook booking note matches no booking", "payment_id", paymentID, "booking_id", bookingNote)
			return nil, nil
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", bookingNote, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func refundable(b *model.Booking) error {
	if b.PaymentStatus == model.PaymentRefunded {
		return apperrors.AlreadyTerminal("Payment", string(b.PaymentStatus))
	}
	if b.PaymentStatus != model.PaymentCompleted || b.TransactionID == "" {
		return apperrors.Precondition("Only fully paid bookings can be refunded", map[string]any{
			"payment_status": b.PaymentStatus,
		})
	}
	return nil
}

func (s *settlementService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *settlementService) translateWriteErr(err error, id, operation string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrStaleState):
		return apperrors.Conflict("Booking was updated concurrently, please retry")
	}
	s.cfg.Log.Error("Failed to update booking", "id", id, "operation", operation, "error", err)
	return apperrors.Internal(fmt.Sprintf("Failed to %s", operation), err)
}

func (s *settlementService) validate(v any) error {
	err := s.validator.Validate(v)
	if err == nil {
		return nil
	}

	s.cfg.Log.Warn("Payment validation failed", "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Payment validation failed", verrs.Details())
	}
	return apperrors.Validation("Payment validation failed", map[string]any{"error": err.Error()})
}

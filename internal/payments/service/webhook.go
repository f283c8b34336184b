package service

import (
	"encoding/json"
	"errors"

	"maharaja/internal/payments/signature"
	"maharaja/pkg/config"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/model"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// decodeWebhook verifies a delivery and returns it in the internal envelope
// shape, along with the provider's own event id when the body carries one.
func (s *settlementService) decodeWebhook(body []byte, sig string) (*model.WebhookEnvelope, string, error) {
	if s.cfg.PaymentProvider == config.ProviderStripe {
		return s.decodeStripeWebhook(body, sig)
	}

	if !signature.Verify(s.cfg.WebhookSecret, body, sig) {
		s.cfg.Log.Warn("Webhook signature verification failed", "body_size", len(body))
		return nil, "", apperrors.InvalidSignature("Webhook signature verification failed")
	}

	var envelope model.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", apperrors.InvalidInput("Malformed webhook payload")
	}
	if envelope.Event == "" {
		return nil, "", apperrors.InvalidInput("Webhook payload has no event")
	}
	return &envelope, "", nil
}

// Stripe signs "<t>.<body>" and sends t=...,v1=... in Stripe-Signature.
func (s *settlementService) decodeStripeWebhook(body []byte, sig string) (*model.WebhookEnvelope, string, error) {
	event, err := webhook.ConstructEventWithOptions(body, sig, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrTooOld) {
			s.cfg.Log.Warn("Webhook signature verification failed", "body_size", len(body), "error", err)
			return nil, "", apperrors.InvalidSignature("Webhook signature verification failed")
		}
		return nil, "", apperrors.InvalidInput("Malformed webhook payload")
	}
	if event.Type == "" || event.Data == nil {
		return nil, "", apperrors.InvalidInput("Webhook payload has no event")
	}

	envelope := &model.WebhookEnvelope{Event: string(event.Type), AccountID: event.Account, CreatedAt: event.Created}
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, "", apperrors.InvalidInput("Malformed webhook payload")
		}
		envelope.Event = model.EventPaymentCaptured
		entity := model.PaymentEntity{
			ID:       pi.ID,
			Amount:   pi.Amount,
			Currency: string(pi.Currency),
			Status:   string(pi.Status),
			Notes:    metadataNotes(pi.Metadata),
		}
		if event.Type == stripe.EventTypePaymentIntentPaymentFailed {
			envelope.Event = model.EventPaymentFailed
			if pi.LastPaymentError != nil {
				entity.ErrorReason = string(pi.LastPaymentError.Code)
			}
		}
		envelope.Payload.Payment = &model.EntityWrapper[model.PaymentEntity]{Entity: entity}

	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, "", apperrors.InvalidInput("Malformed webhook payload")
		}
		envelope.Event = model.EventRefundCreated
		if ch.PaymentIntent != nil {
			envelope.Payload.Refund = &model.EntityWrapper[model.RefundEntity]{Entity: model.RefundEntity{
				PaymentID: ch.PaymentIntent.ID,
				Amount:    ch.AmountRefunded,
			}}
			envelope.Payload.Payment = &model.EntityWrapper[model.PaymentEntity]{Entity: model.PaymentEntity{
				ID:    ch.PaymentIntent.ID,
				Notes: metadataNotes(ch.Metadata),
			}}
		}

	case stripe.EventTypeRefundCreated:
		var r stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &r); err != nil {
			return nil, "", apperrors.InvalidInput("Malformed webhook payload")
		}
		envelope.Event = model.EventRefundCreated
		if r.PaymentIntent != nil {
			envelope.Payload.Refund = &model.EntityWrapper[model.RefundEntity]{Entity: model.RefundEntity{
				ID:        r.ID,
				PaymentID: r.PaymentIntent.ID,
				Amount:    r.Amount,
			}}
		}
	}
	return envelope, event.ID, nil
}

func metadataNotes(metadata map[string]string) json.RawMessage {
	if len(metadata) == 0 {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return raw
}

// Package reconciler checks flagged bookings against the payment gateway.
package reconciler

import (
	"context"
	"errors"
	"time"

	"maharaja/internal/events"
	"maharaja/internal/payments/gateway"
	"maharaja/pkg/kafka"
	"maharaja/pkg/logger"
	"maharaja/pkg/model"
)

// Outcome is what the gateway says about a flagged booking.
type Outcome string

const (
	OutcomeSettled   Outcome = "settled"
	OutcomeUnsettled Outcome = "unsettled"
	OutcomeCaptured  Outcome = "captured"
)

type Reconciler struct {
	gateway gateway.Gateway
	timeout time.Duration
	log     *logger.Logger
}

func NewReconciler(gw gateway.Gateway, timeout time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{
		gateway: gw,
		timeout: timeout,
		log:     log,
	}
}

// Handle is a kafka.MessageHandler. Gateway errors are transient so the
// consumer retries them; undecodable messages go straight to the DLQ.
func (r *Reconciler) Handle(ctx context.Context, msg kafka.Message) error {
	if t := msg.GetEventType(); t != "" && t != events.PaymentReconciliation {
		return nil
	}

	var rec model.Reconciliation
	if err := msg.DecodeValue(&rec); err != nil {
		return err
	}
	if rec.TransactionID == "" {
		return kafka.NewPermanentError("reconciliation has no transaction id", errors.New("missing transaction_id"))
	}

	outcome, err := r.Check(ctx, rec)
	if err != nil {
		return kafka.NewTransientError("failed to fetch payment from gateway", err)
	}

	log := logger.FromContext(ctx, r.log)
	args := []any{
		"booking_id", rec.BookingID,
		"booking_number", rec.BookingNumber,
		"transaction_id", rec.TransactionID,
		"reason", rec.Reason,
		"outcome", outcome,
	}
	if outcome == OutcomeSettled {
		log.Info("Reconciliation settled upstream", args...)
	} else {
		log.Warn("Reconciliation needs manual follow-up", args...)
	}
	return nil
}

// Check fetches the payment and classifies it for rec's reason.
func (r *Reconciler) Check(ctx context.Context, rec model.Reconciliation) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payment, err := r.gateway.FetchPayment(ctx, rec.TransactionID)
	if err != nil {
		return "", err
	}

	switch rec.Reason {
	case model.ReconcileRefundFailed:
		if payment.FullyRefunded() {
			return OutcomeSettled, nil
		}
		return OutcomeUnsettled, nil
	case model.ReconcileCaptureAfterClose:
		if payment.FullyRefunded() {
			return OutcomeSettled, nil
		}
		return OutcomeCaptured, nil
	}
	return OutcomeUnsettled, nil
}

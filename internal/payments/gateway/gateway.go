// Package gateway adapts payment providers to the settlement coordinator.
// Amounts crossing this boundary are always in the provider's minor unit.
package gateway

import (
	"context"
	"fmt"

	paymentserrors "maharaja/internal/payments/errors"
)

type OrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Status      string
}

type Refund struct {
	ID          string
	PaymentID   string
	AmountMinor int64
	Status      string
}

type Payment struct {
	ID            string
	OrderID       string
	Status        string
	AmountMinor   int64
	RefundedMinor int64
	RefundStatus  string
}

// FullyRefunded reports whether the provider has returned the whole amount.
func (p *Payment) FullyRefunded() bool {
	return p.AmountMinor > 0 && p.RefundedMinor >= p.AmountMinor
}

type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, params OrderParams) (*Order, error)
	Refund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*Refund, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// MinorUnits converts a major-unit amount for currencies with 100 subunits.
func MinorUnits(amount int64) int64 {
	return amount * 100
}

// call runs fn and abandons it when ctx ends first. The SDKs used here are
// not context-aware, so this is what bounds a slow provider.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", paymentserrors.ErrGatewayTimeout, ctx.Err())
	}
}

package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	paymentserrors "maharaja/internal/payments/errors"

	"github.com/google/uuid"
)

const ProviderMock = "mock"

// MockGateway is an in-memory provider for local runs and tests. Failures
// can be injected per call type.
type MockGateway struct {
	mu       sync.Mutex
	orders   map[string]*Order
	payments map[string]*Payment
	refunds  []Refund

	FailCreateOrder error
	FailRefund      error
	FailFetch       error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		orders:   make(map[string]*Order),
		payments: make(map[string]*Payment),
	}
}

func (g *MockGateway) Name() string {
	return ProviderMock
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (g *MockGateway) CreateOrder(_ context.Context, params OrderParams) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailCreateOrder != nil {
		return nil, g.FailCreateOrder
	}
	order := &Order{
		ID:          newID("order_"),
		AmountMinor: params.AmountMinor,
		Currency:    params.Currency,
		Status:      "created",
	}
	g.orders[order.ID] = order
	c := *order
	return &c, nil
}

// Capture simulates the client completing payment on order orderID.
func (g *MockGateway) Capture(orderID string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("unknown order %s", orderID)
	}
	p := &Payment{
		ID:          newID("pay_"),
		OrderID:     orderID,
		Status:      "captured",
		AmountMinor: order.AmountMinor,
	}
	g.payments[p.ID] = p
	c := *p
	return &c, nil
}

func (g *MockGateway) Refund(_ context.Context, paymentID string, amountMinor int64, _ map[string]string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if paymentID == "" {
		return nil, paymentserrors.ErrMissingPaymentID
	}
	if g.FailRefund != nil {
		return nil, g.FailRefund
	}
	r := Refund{
		ID:          newID("rfnd_"),
		PaymentID:   paymentID,
		AmountMinor: amountMinor,
		Status:      "processed",
	}
	g.refunds = append(g.refunds, r)
	if p, ok := g.payments[paymentID]; ok {
		p.RefundedMinor += amountMinor
		p.RefundStatus = "full"
		if p.RefundedMinor < p.AmountMinor {
			p.RefundStatus = "partial"
		}
	}
	return &r, nil
}

func (g *MockGateway) FetchPayment(_ context.Context, paymentID string) (*Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailFetch != nil {
		return nil, g.FailFetch
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("unknown payment %s", paymentID)
	}
	c := *p
	return &c, nil
}

// Refunds returns every refund issued so far.
func (g *MockGateway) Refunds() []Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Refund(nil), g.refunds...)
}

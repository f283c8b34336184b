package gateway

import (
	"context"
	"fmt"

	paymentserrors "maharaja/internal/payments/errors"

	razorpay "github.com/razorpay/razorpay-go"
)

const ProviderRazorpay = "razorpay"

type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}, nil
}

func (g *RazorpayGateway) Name() string {
	return ProviderRazorpay
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	notes := make(map[string]interface{}, len(params.Notes))
	for k, v := range params.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   params.AmountMinor,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"notes":    notes,
	}

	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	order := &Order{
		ID:          stringField(body, "id"),
		AmountMinor: intField(body, "amount"),
		Currency:    stringField(body, "currency"),
		Status:      stringField(body, "status"),
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order create: response has no id")
	}
	return order, nil
}

func (g *RazorpayGateway) Refund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	if paymentID == "" {
		return nil, paymentserrors.ErrMissingPaymentID
	}
	data := map[string]interface{}{}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Refund(paymentID, int(amountMinor), data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay refund: %w", err)
	}

	return &Refund{
		ID:          stringField(body, "id"),
		PaymentID:   paymentID,
		AmountMinor: intField(body, "amount"),
		Status:      stringField(body, "status"),
	}, nil
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, paymentserrors.ErrMissingPaymentID
	}

	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay payment fetch: %w", err)
	}

	return paymentFromRazorpay(body), nil
}

func paymentFromRazorpay(body map[string]interface{}) *Payment {
	return &Payment{
		ID:            stringField(body, "id"),
		OrderID:       stringField(body, "order_id"),
		Status:        stringField(body, "status"),
		AmountMinor:   intField(body, "amount"),
		RefundedMinor: intField(body, "amount_refunded"),
		RefundStatus:  stringField(body, "refund_status"),
	}
}

func stringField(body map[string]interface{}, key string) string {
	if s, ok := body[key].(string); ok {
		return s
	}
	return ""
}

// intField reads a JSON number, which the SDK decodes as float64.
func intField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

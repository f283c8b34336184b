package gateway

import (
	"context"
	"fmt"
	"strings"

	paymentserrors "maharaja/internal/payments/errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

const ProviderStripe = "stripe"

// StripeGateway maps orders onto PaymentIntents. The payment id the client
// reports back is the PaymentIntent id.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	return &StripeGateway{api: client.New(secretKey, nil)}, nil
}

func (g *StripeGateway) Name() string {
	return ProviderStripe
}

func (g *StripeGateway) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountMinor),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(params.Receipt),
		Metadata:    make(map[string]string, len(params.Notes)),
	}
	for k, v := range params.Notes {
		piParams.Metadata[k] = v
	}
	piParams.Context = ctx

	pi, err := call(ctx, func() (*stripe.PaymentIntent, error) {
		return g.api.PaymentIntents.New(piParams)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent create: %w", err)
	}

	return &Order{
		ID:          pi.ID,
		AmountMinor: pi.Amount,
		Currency:    strings.ToUpper(string(pi.Currency)),
		Status:      string(pi.Status),
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	if paymentID == "" {
		return nil, paymentserrors.ErrMissingPaymentID
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentID),
		Amount:        stripe.Int64(amountMinor),
		Metadata:      notes,
	}
	params.Context = ctx

	r, err := call(ctx, func() (*stripe.Refund, error) {
		return g.api.Refunds.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}

	return &Refund{
		ID:          r.ID,
		PaymentID:   paymentID,
		AmountMinor: r.Amount,
		Status:      string(r.Status),
	}, nil
}

func (g *StripeGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, paymentserrors.ErrMissingPaymentID
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := call(ctx, func() (*stripe.PaymentIntent, error) {
		return g.api.PaymentIntents.Get(paymentID, params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent get: %w", err)
	}

	payment := &Payment{
		ID:          pi.ID,
		Status:      string(pi.Status),
		AmountMinor: pi.Amount,
	}
	if pi.LatestCharge != nil {
		payment.RefundedMinor = pi.LatestCharge.AmountRefunded
		if pi.LatestCharge.Refunded {
			payment.RefundStatus = "full"
		} else if pi.LatestCharge.AmountRefunded > 0 {
			payment.RefundStatus = "partial"
		}
	}
	return payment, nil
}

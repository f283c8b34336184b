package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	paymentserrors "maharaja/internal/payments/errors"
	"maharaja/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(200000), MinorUnits(2000))
	assert.Equal(t, int64(0), MinorUnits(0))
}

func TestCall_ReturnsResult(t *testing.T) {
	v, err := call(context.Background(), func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCall_AbandonsSlowProvider(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := call(ctx, func() (string, error) {
		<-release
		return "late", nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, paymentserrors.ErrGatewayTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMockGateway_Lifecycle(t *testing.T) {
	g := NewMockGateway()
	ctx := context.Background()

	order, err := g.CreateOrder(ctx, OrderParams{AmountMinor: 200000, Currency: "INR", Receipt: "RB-1-0001"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.ID, "order_"))

	payment, err := g.Capture(order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), payment.AmountMinor)

	_, err = g.Refund(ctx, payment.ID, 200000, nil)
	require.NoError(t, err)

	fetched, err := g.FetchPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.True(t, fetched.FullyRefunded())
	assert.Equal(t, "full", fetched.RefundStatus)
	assert.Len(t, g.Refunds(), 1)
}

func TestMockGateway_InjectedFailures(t *testing.T) {
	g := NewMockGateway()
	g.FailRefund = errors.New("upstream 503")

	_, err := g.Refund(context.Background(), "pay_1", 100, nil)
	assert.EqualError(t, err, "upstream 503")

	_, err = g.Refund(context.Background(), "", 100, nil)
	assert.ErrorIs(t, err, paymentserrors.ErrMissingPaymentID)
}

func TestPaymentFromRazorpay(t *testing.T) {
	p := paymentFromRazorpay(map[string]interface{}{
		"id":              "pay_29QQoUBi66xm2f",
		"order_id":        "order_9A33XWu170gUtm",
		"status":          "refunded",
		"amount":          float64(50000),
		"amount_refunded": float64(50000),
		"refund_status":   "full",
	})

	assert.Equal(t, "pay_29QQoUBi66xm2f", p.ID)
	assert.Equal(t, "order_9A33XWu170gUtm", p.OrderID)
	assert.Equal(t, int64(50000), p.AmountMinor)
	assert.True(t, p.FullyRefunded())
}

func TestNewGateways_RequireCredentials(t *testing.T) {
	_, err := NewRazorpayGateway("", "secret")
	assert.Error(t, err)
	_, err = NewStripeGateway("")
	assert.Error(t, err)

	rp, err := NewRazorpayGateway("rzp_test_key", "secret")
	require.NoError(t, err)
	assert.Equal(t, ProviderRazorpay, rp.Name())
}

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{config.ProviderMock, ProviderMock, false},
		{config.ProviderRazorpay, ProviderRazorpay, false},
		{config.ProviderStripe, ProviderStripe, false},
		{"paypal", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			gw, err := New(&config.Config{
				PaymentProvider:   tt.provider,
				RazorpayKeyID:     "rzp_test_key",
				RazorpayKeySecret: "secret",
				StripeSecretKey:   "sk_test_key",
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, gw.Name())
		})
	}
}

package gateway

import (
	"fmt"

	"maharaja/pkg/config"
)

// New builds the gateway named by cfg.PaymentProvider.
func New(cfg *config.Config) (Gateway, error) {
	switch cfg.PaymentProvider {
	case config.ProviderRazorpay:
		return NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	case config.ProviderStripe:
		return NewStripeGateway(cfg.StripeSecretKey)
	case config.ProviderMock:
		return NewMockGateway(), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
}

package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// WebhookHandler routes are mounted without auth, idempotency or JSON
// content-type enforcement, since gateways sign the raw body instead.
type WebhookHandler interface {
	RegisterWebhookRoutes(*httprouter.Router)
}

// Worker is a background loop owned by the application lifecycle.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

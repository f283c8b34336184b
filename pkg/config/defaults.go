package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "maharaja"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = ""
	DefaultRedisDB   = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultEnvFile  = ".env"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultHotelTimezone         = "Asia/Kolkata"
	DefaultGuardWindow           = 30 * time.Second
	DefaultGuardStore            = GuardStoreMongo
	DefaultPartialPaymentPercent = 10
	DefaultPendingBookingTTL     = 0 // disabled
	DefaultPendingSweepInterval  = 1 * time.Minute

	DefaultPaymentProvider        = ProviderRazorpay
	DefaultPaymentCurrency        = "INR"
	DefaultGatewayTimeout         = 10 * time.Second
	DefaultWebhookSignatureHeader = "X-Razorpay-Signature"
	DefaultStripeSignatureHeader  = "Stripe-Signature"

	DefaultEventsEnabled       = false
	DefaultBookingEventsTopic  = "booking-events"
	DefaultReconciliationTopic = "payment-reconciliation"
	DefaultEventsDLQTopic      = "dlq-reservations"
	DefaultReconcilerGroupID   = "payment-reconciler"
)

const (
	GuardStoreMongo = "mongo"
	GuardStoreRedis = "redis"

	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
	ProviderMock     = "mock"
)

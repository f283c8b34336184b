package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnvFile  = "ENV_FILE"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHotelTimezone         = "HOTEL_TIMEZONE"
	EnvGuardWindow           = "BOOKING_GUARD_WINDOW"
	EnvGuardStore            = "BOOKING_GUARD_STORE"
	EnvPartialPaymentPercent = "PARTIAL_PAYMENT_PERCENT"
	EnvPendingBookingTTL     = "PENDING_BOOKING_TTL"
	EnvPendingSweepInterval  = "PENDING_SWEEP_INTERVAL"

	EnvPaymentProvider        = "PAYMENT_PROVIDER"
	EnvPaymentCurrency        = "PAYMENT_CURRENCY"
	EnvGatewayTimeout         = "PAYMENT_GATEWAY_TIMEOUT"
	EnvRazorpayKeyID          = "RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret      = "RAZORPAY_KEY_SECRET"
	EnvStripeSecretKey        = "STRIPE_SECRET_KEY"
	EnvStripePublishableKey   = "STRIPE_PUBLISHABLE_KEY"
	EnvWebhookSecret          = "PAYMENT_WEBHOOK_SECRET"
	EnvWebhookSignatureHeader = "PAYMENT_WEBHOOK_SIGNATURE_HEADER"

	EnvEventsEnabled       = "EVENTS_ENABLED"
	EnvBookingEventsTopic  = "BOOKING_EVENTS_TOPIC"
	EnvReconciliationTopic = "PAYMENT_RECONCILIATION_TOPIC"
	EnvEventsDLQTopic      = "EVENTS_DLQ_TOPIC"
	EnvReconcilerGroupID   = "RECONCILER_GROUP_ID"
)

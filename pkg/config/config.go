package config

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"maharaja/pkg/client"
	"maharaja/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	HotelTimezone         string
	Location              *time.Location
	GuardWindow           time.Duration
	GuardStore            string
	PartialPaymentPercent int
	PendingBookingTTL     time.Duration
	PendingSweepInterval  time.Duration

	PaymentProvider        string
	PaymentCurrency        string
	GatewayTimeout         time.Duration
	RazorpayKeyID          string
	RazorpayKeySecret      string
	StripeSecretKey        string
	StripePublishableKey   string
	WebhookSecret          string
	WebhookSignatureHeader string

	EventsEnabled       bool
	BookingEventsTopic  string
	ReconciliationTopic string
	EventsDLQTopic      string
	ReconcilerGroupID   string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(getEnvStr(EnvEnvFile, DefaultEnvFile))

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HotelTimezone:         getEnvStr(EnvHotelTimezone, DefaultHotelTimezone),
		GuardWindow:           getEnvDuration(EnvGuardWindow, DefaultGuardWindow),
		GuardStore:            strings.ToLower(getEnvStr(EnvGuardStore, DefaultGuardStore)),
		PartialPaymentPercent: getEnvNum(EnvPartialPaymentPercent, DefaultPartialPaymentPercent),
		PendingBookingTTL:     getEnvDuration(EnvPendingBookingTTL, DefaultPendingBookingTTL),
		PendingSweepInterval:  getEnvDuration(EnvPendingSweepInterval, DefaultPendingSweepInterval),

		PaymentProvider:        strings.ToLower(getEnvStr(EnvPaymentProvider, DefaultPaymentProvider)),
		PaymentCurrency:        strings.ToUpper(getEnvStr(EnvPaymentCurrency, DefaultPaymentCurrency)),
		GatewayTimeout:         getEnvDuration(EnvGatewayTimeout, DefaultGatewayTimeout),
		RazorpayKeyID:          getEnvStr(EnvRazorpayKeyID, ""),
		RazorpayKeySecret:      getEnvStr(EnvRazorpayKeySecret, ""),
		StripeSecretKey:        getEnvStr(EnvStripeSecretKey, ""),
		StripePublishableKey:   getEnvStr(EnvStripePublishableKey, ""),
		WebhookSecret:          getEnvStr(EnvWebhookSecret, ""),
		WebhookSignatureHeader: getEnvStr(EnvWebhookSignatureHeader, DefaultWebhookSignatureHeader),

		EventsEnabled:       getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		BookingEventsTopic:  getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		ReconciliationTopic: getEnvStr(EnvReconciliationTopic, DefaultReconciliationTopic),
		EventsDLQTopic:      getEnvStr(EnvEventsDLQTopic, DefaultEventsDLQTopic),
		ReconcilerGroupID:   getEnvStr(EnvReconcilerGroupID, DefaultReconcilerGroupID),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
	if cfg.PaymentProvider == ProviderStripe && os.Getenv(EnvWebhookSignatureHeader) == "" {
		cfg.WebhookSignatureHeader = DefaultStripeSignatureHeader
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the guard store. It is a no-op when no address is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positive := map[string]time.Duration{
		"MongoConnTimeout":     cfg.MongoConnTimeout,
		"RateLimitWindow":      cfg.RateLimitWindow,
		"RequestTimeout":       cfg.RequestTimeout,
		"IdempotencyTTL":       cfg.IdempotencyTTL,
		"ReadTimeout":          cfg.ReadTimeout,
		"WriteTimeout":         cfg.WriteTimeout,
		"IdleTimeout":          cfg.IdleTimeout,
		"ShutdownTimeout":      cfg.ShutdownTimeout,
		"GuardWindow":          cfg.GuardWindow,
		"GatewayTimeout":       cfg.GatewayTimeout,
		"PendingSweepInterval": cfg.PendingSweepInterval,
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, positive[name]))
		}
	}
	if cfg.PendingBookingTTL < 0 {
		errors = append(errors, fmt.Sprintf("PendingBookingTTL cannot be negative, got: %s", cfg.PendingBookingTTL))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters")
	}

	if loc, err := time.LoadLocation(cfg.HotelTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("HotelTimezone is not a valid IANA zone: %s", cfg.HotelTimezone))
	} else {
		cfg.Location = loc
	}

	if cfg.PartialPaymentPercent < 1 || cfg.PartialPaymentPercent > 100 {
		errors = append(errors, fmt.Sprintf("PartialPaymentPercent must be between 1 and 100, got: %d", cfg.PartialPaymentPercent))
	}

	switch cfg.GuardStore {
	case GuardStoreMongo:
	case GuardStoreRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr is required when BookingGuardStore is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("BookingGuardStore must be one of [mongo, redis], got: %s", cfg.GuardStore))
	}

	switch cfg.PaymentProvider {
	case ProviderRazorpay:
		if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
			errors = append(errors, "RazorpayKeyID and RazorpayKeySecret are required for the razorpay provider")
		}
	case ProviderStripe:
		if cfg.StripeSecretKey == "" {
			errors = append(errors, "StripeSecretKey is required for the stripe provider")
		}
	case ProviderMock:
	default:
		errors = append(errors, fmt.Sprintf("PaymentProvider must be one of [razorpay, stripe, mock], got: %s", cfg.PaymentProvider))
	}

	if cfg.WebhookSecret == "" && cfg.PaymentProvider != ProviderMock {
		errors = append(errors, "PaymentWebhookSecret cannot be empty")
	}
	if cfg.WebhookSignatureHeader == "" {
		errors = append(errors, "PaymentWebhookSignatureHeader cannot be empty")
	}
	if len(cfg.PaymentCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("PaymentCurrency must be an ISO-4217 code, got: %s", cfg.PaymentCurrency))
	}

	if cfg.EventsEnabled && (cfg.BookingEventsTopic == "" || cfg.ReconciliationTopic == "") {
		errors = append(errors, "BookingEventsTopic and PaymentReconciliationTopic are required when events are enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// SigningSecret is the key used to verify client payment callbacks.
func (cfg *Config) SigningSecret() string {
	switch cfg.PaymentProvider {
	case ProviderStripe:
		return cfg.StripeSecretKey
	case ProviderMock:
		if cfg.RazorpayKeySecret == "" {
			return cfg.WebhookSecret
		}
	}
	return cfg.RazorpayKeySecret
}

// PublicKey is the client-usable key returned alongside a gateway order.
func (cfg *Config) PublicKey() string {
	if cfg.PaymentProvider == ProviderStripe {
		return cfg.StripePublishableKey
	}
	return cfg.RazorpayKeyID
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hotel_timezone", cfg.HotelTimezone,
		"guard_window", cfg.GuardWindow,
		"guard_store", cfg.GuardStore,
		"partial_payment_percent", cfg.PartialPaymentPercent,
		"pending_booking_ttl", cfg.PendingBookingTTL,
		"payment_provider", cfg.PaymentProvider,
		"payment_currency", cfg.PaymentCurrency,
		"gateway_timeout", cfg.GatewayTimeout,
		"webhook_secret_set", cfg.WebhookSecret != "",
		"webhook_signature_header", cfg.WebhookSignatureHeader,
		"events_enabled", cfg.EventsEnabled,
		"booking_events_topic", cfg.BookingEventsTopic,
		"reconciliation_topic", cfg.ReconciliationTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}

package main

import (
	_ "time/tzdata"

	bookingshandler "maharaja/internal/bookings/handler"
	bookingsrepo "maharaja/internal/bookings/repository"
	bookingsservice "maharaja/internal/bookings/service"
	"maharaja/internal/bookings/validator"
	"maharaja/internal/bookings/worker"
	cataloghandler "maharaja/internal/catalog/handler"
	catalogrepo "maharaja/internal/catalog/repository"
	catalogservice "maharaja/internal/catalog/service"
	"maharaja/internal/events"
	"maharaja/internal/payments/gateway"
	paymentshandler "maharaja/internal/payments/handler"
	paymentsrepo "maharaja/internal/payments/repository"
	paymentsservice "maharaja/internal/payments/service"
	"maharaja/pkg/app"
	"maharaja/pkg/config"
	"maharaja/pkg/kafka"
	kafka_config "maharaja/pkg/kafka/config"
	kafka_middleware "maharaja/pkg/kafka/middleware"
)

const ServiceName = "reservations"

type services struct {
	bookings  bookingsservice.BookingService
	catalog   catalogservice.ResourceService
	payments  paymentsservice.SettlementService
	publisher events.Publisher
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Reservations service")
	svc := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	paymentHandler := paymentshandler.NewPaymentHandler(svc.payments, cfg.WebhookSignatureHeader, cfg.Log)
	serverApp.SetWebhooks(paymentHandler)
	serverApp.SetApp(
		cataloghandler.NewResourceHandler(svc.catalog, cfg.Log),
		bookingshandler.NewBookingHandler(svc.bookings, cfg.Log),
		paymentHandler,
	)

	if cfg.PendingBookingTTL > 0 {
		serverApp.AddWorker(worker.NewPendingSweeper(svc.bookings, cfg.PendingBookingTTL, cfg.PendingSweepInterval, cfg.Log))
	} else {
		cfg.Log.Info("Pending booking expiry disabled")
	}
	serverApp.OnShutdown(func() {
		if err := svc.publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})
	serverApp.Run()
}

func initServices(cfg *config.Config) services {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	resourceRepo := catalogrepo.NewMongoResourceRepository(cfg)
	publisher := initPublisher(cfg)

	checker := bookingsservice.NewConflictChecker(bookingRepo)
	guard := bookingsservice.NewGuard(bookingRepo, initLockStore(cfg), cfg.GuardWindow, cfg.Log)
	resourceService := catalogservice.NewResourceService(resourceRepo, checker, cfg)

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		resourceService,
		checker,
		guard,
		bookingValidator,
		publisher,
		cfg,
	)

	gw, err := gateway.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize payment gateway", "error", err)
	}
	settlementService := paymentsservice.NewSettlementService(
		bookingRepo,
		paymentsrepo.NewMongoPaymentEventRepository(cfg),
		gw,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservation services initialized",
		"database", cfg.MongoDatabaseName,
		"payment_provider", gw.Name(),
		"guard_store", cfg.GuardStore,
	)
	return services{
		bookings:  bookingService,
		catalog:   resourceService,
		payments:  settlementService,
		publisher: publisher,
	}
}

func initLockStore(cfg *config.Config) bookingsrepo.LockStore {
	if cfg.GuardStore == config.GuardStoreRedis {
		if cfg.Client.Redis == nil {
			cfg.Log.Warn("Redis guard store requested without a Redis connection, falling back to Mongo")
			return bookingsrepo.NewMongoLockStore(cfg)
		}
		return bookingsrepo.NewRedisLockStore(cfg.Client.Redis)
	}
	return bookingsrepo.NewMongoLockStore(cfg)
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Lifecycle events disabled")
		return events.NewNoopPublisher()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.TracingProducerMiddleware())
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Lifecycle events enabled",
		"brokers", kafkaCfg.Brokers,
		"booking_topic", cfg.BookingEventsTopic,
		"reconciliation_topic", cfg.ReconciliationTopic,
	)
	return events.NewKafkaPublisher(producer, cfg.BookingEventsTopic, cfg.ReconciliationTopic, cfg.Log)
}

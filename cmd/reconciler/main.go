package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"maharaja/internal/payments/gateway"
	"maharaja/internal/payments/reconciler"
	"maharaja/pkg/config"
	"maharaja/pkg/kafka"
	kafka_config "maharaja/pkg/kafka/config"
	kafka_middleware "maharaja/pkg/kafka/middleware"
)

const ServiceName = "payment-reconciler"

func main() {
	cfg := config.Load(ServiceName)

	gw, err := gateway.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize payment gateway", "error", err)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	rec := reconciler.NewReconciler(gw, cfg.GatewayTimeout, cfg.Log)
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.ReconciliationTopic, cfg.ReconcilerGroupID, cfg.EventsDLQTopic, rec.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.TracingConsumerMiddleware())
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting payment reconciler",
		"topic", cfg.ReconciliationTopic,
		"group_id", cfg.ReconcilerGroupID,
		"provider", gw.Name(),
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Reconciler stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Payment reconciler stopped")
}

package kafka_middleware

import (
	"context"

	"maharaja/pkg/kafka"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "maharaja/pkg/kafka"

func TracingProducerMiddleware() kafka.ProducerMiddleware {
	tracer := otel.Tracer(tracerName)
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		ctx, span := tracer.Start(ctx, "kafka.publish "+msg.Topic,
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(messageAttributes(msg)...),
		)
		defer span.End()

		err := next(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

func TracingConsumerMiddleware() kafka.ConsumerMiddleware {
	tracer := otel.Tracer(tracerName)
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		ctx, span := tracer.Start(ctx, "kafka.process "+msg.Topic,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(messageAttributes(msg)...),
			trace.WithAttributes(
				attribute.Int("messaging.kafka.partition", msg.Partition),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
			),
		)
		defer span.End()

		err := next(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

func messageAttributes(msg kafka.Message) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", msg.Topic),
		attribute.String("messaging.kafka.message.key", msg.Key),
		attribute.String("messaging.message.id", msg.GetEventID()),
		attribute.String("event.type", msg.GetEventType()),
	}
}

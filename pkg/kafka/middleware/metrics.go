package kafka_middleware

import (
	"context"

	"parkslot/pkg/kafka"
	"parkslot/pkg/metrics"
)

// MetricsProducerMiddleware counts publishes per topic and outcome.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		m.KafkaPublished(msg.Topic, err)
		return err
	}
}

// MetricsConsumerMiddleware counts handled messages per topic and outcome.
// A retried message is counted once per attempt.
func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		err := next(ctx, msg)
		m.KafkaConsumed(msg.Topic, err)
		return err
	}
}

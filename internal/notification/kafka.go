package notification

import (
	"context"
	"fmt"
	"time"

	"parkslot/pkg/kafka"
	"parkslot/pkg/logger"
)

const (
	EventEmailRequested = "notification.email.requested"
	EventSchemaVersion  = "1"
	EventSource         = "parkslot"
)

// EmailRequested is the payload published for the notifier to deliver.
type EmailRequested struct {
	Recipients  []string  `json:"recipients"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	RequestedAt time.Time `json:"requested_at"`
}

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaGateway hands messages to the notifier service through a topic.
type KafkaGateway struct {
	publisher Publisher
	now       func() time.Time
}

func NewKafkaGateway(publisher Publisher) *KafkaGateway {
	return &KafkaGateway{publisher: publisher, now: time.Now}
}

func (g *KafkaGateway) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	recipients = cleanRecipients(recipients)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	msg := kafka.NewMessage().
		WithKey(recipients[0]).
		WithEventType(EventEmailRequested).
		WithSchemaVersion(EventSchemaVersion).
		WithSource(EventSource).
		WithCorrelationID(logger.RequestID(ctx)).
		WithValue(EmailRequested{
			Recipients:  recipients,
			Subject:     subject,
			Body:        body,
			RequestedAt: g.now().UTC(),
		}).
		Build()

	if err := g.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("%w: publish %s: %w", ErrDeliveryFailed, EventEmailRequested, err)
	}
	return nil
}

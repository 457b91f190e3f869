package notification

import (
	"context"
	"errors"

	"parkslot/pkg/kafka"
	"parkslot/pkg/logger"
)

// NewRelay returns the consumer handler of cmd/notifier. It decodes
// EmailRequested events and delivers them through gateway. Provider 5xx and
// transport failures come back transient so the consumer retries them; anything
// else is permanent and ends up in the DLQ.
func NewRelay(gateway Gateway, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if t := msg.GetEventType(); t != "" && t != EventEmailRequested {
			log.Warn("skipping unexpected event type",
				"event_type", t,
				"event_id", msg.GetEventID(),
			)
			return nil
		}

		var event EmailRequested
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("deserialization failed", err)
		}
		if len(event.Recipients) == 0 {
			return kafka.NewPermanentError("invalid message", ErrNoRecipients)
		}

		err := gateway.SendEmail(ctx, event.Recipients, event.Subject, event.Body)
		switch {
		case err == nil:
			log.Info("email delivered",
				"event_id", msg.GetEventID(),
				"correlation_id", msg.GetCorrelationID(),
				"recipients", len(event.Recipients),
			)
			return nil
		case IsTransient(err), errors.Is(err, context.DeadlineExceeded):
			return kafka.NewTransientError("email delivery failed", err).
				WithDetail("event_id", msg.GetEventID())
		default:
			return kafka.NewPermanentError("email delivery rejected", err).
				WithDetail("event_id", msg.GetEventID())
		}
	}
}

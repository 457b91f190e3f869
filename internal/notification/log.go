package notification

import (
	"context"

	"parkslot/pkg/logger"
)

// LogGateway writes every message to the structured log instead of sending it.
type LogGateway struct {
	log *logger.Logger
}

func NewLogGateway(log *logger.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	recipients = cleanRecipients(recipients)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	g.log.For(ctx).Info("email notification",
		"channel", ChannelLog,
		"recipients", recipients,
		"subject", subject,
		"body", body,
	)
	return nil
}

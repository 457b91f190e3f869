package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// MailSender is the subset of *sendgrid.Client used by the gateway.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// DeliveryError carries the provider's HTTP status for a rejected message.
// StatusCode is zero when the request never reached the provider.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %v", ErrDeliveryFailed, e.Err)
	}
	return fmt.Sprintf("%v: provider returned status %d: %s", ErrDeliveryFailed, e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeliveryFailed}
	}
	return []error{ErrDeliveryFailed, e.Err}
}

// Transient reports whether resending the same message may succeed.
func (e *DeliveryError) Transient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsTransient reports whether err is a DeliveryError worth retrying.
func IsTransient(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Transient()
	}
	return false
}

type SendGridGateway struct {
	sender    MailSender
	fromEmail string
	fromName  string
}

func NewSendGridGateway(apiKey, fromEmail, fromName string) *SendGridGateway {
	return NewSendGridGatewayWithSender(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func NewSendGridGatewayWithSender(sender MailSender, fromEmail, fromName string) *SendGridGateway {
	return &SendGridGateway{sender: sender, fromEmail: fromEmail, fromName: fromName}
}

// SendEmail sends one message with a personalization per recipient, so addresses
// are not disclosed to each other.
func (g *SendGridGateway) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	recipients = cleanRecipients(recipients)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(g.fromName, g.fromEmail))
	message.Subject = subject
	message.AddContent(mail.NewContent("text/plain", body))
	for _, r := range recipients {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail("", r))
		message.AddPersonalizations(p)
	}

	response, err := g.sender.SendWithContext(ctx, message)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &DeliveryError{StatusCode: response.StatusCode, Body: response.Body}
	}
	return nil
}

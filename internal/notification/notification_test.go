package notification

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"parkslot/pkg/kafka"
	"parkslot/pkg/logger"
	"parkslot/pkg/model"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type mockGateway struct {
	sendFunc func(ctx context.Context, recipients []string, subject, body string) error
	calls    int
}

func (m *mockGateway) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	m.calls++
	if m.sendFunc != nil {
		return m.sendFunc(ctx, recipients, subject, body)
	}
	return nil
}

type mockSender struct {
	sendFunc func(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
	last     *mail.SGMailV3
}

func (m *mockSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	m.last = email
	return m.sendFunc(ctx, email)
}

type mockPublisher struct {
	published []kafka.Message
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

func TestFormatConfirmation(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	booking := &model.Booking{
		SlotNumber:  "7",
		VehicleType: model.FourWheeler,
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
		BillAmount:  15,
	}

	subject, body := FormatConfirmation(ConfirmationFor("Dana", booking))

	if subject != "Booking Confirmed" {
		t.Errorf("subject = %q", subject)
	}
	want := strings.Join([]string{
		"Congratulation your booking is confirmed.",
		"Name:Dana",
		"Vehicle Type:Four Wheeler",
		"Slot Number:7",
		"Start Time:2026-03-14 10:00",
		"End Time:2026-03-14 11:30",
		"Bill Amount:15",
		"Thankyou for using our service.",
	}, "\n")
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestLogGateway_RequiresRecipients(t *testing.T) {
	g := NewLogGateway(logger.Discard())

	if err := g.SendEmail(context.Background(), []string{" ", ""}, "s", "b"); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("expected ErrNoRecipients, got %v", err)
	}
	if err := g.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSendGridGateway(t *testing.T) {
	tests := []struct {
		name          string
		response      *rest.Response
		err           error
		wantErr       bool
		wantTransient bool
	}{
		{name: "accepted", response: &rest.Response{StatusCode: http.StatusAccepted}},
		{name: "bad request", response: &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad"}, wantErr: true},
		{name: "provider down", response: &rest.Response{StatusCode: http.StatusBadGateway}, wantErr: true, wantTransient: true},
		{name: "throttled", response: &rest.Response{StatusCode: http.StatusTooManyRequests}, wantErr: true, wantTransient: true},
		{name: "transport", err: errors.New("connection reset"), wantErr: true, wantTransient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{sendFunc: func(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
				return tt.response, tt.err
			}}
			g := NewSendGridGatewayWithSender(sender, "noreply@parkslot.test", "Parkslot")

			err := g.SendEmail(context.Background(), []string{"a@example.com", "b@example.com", "A@example.com"}, "subj", "body")

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrDeliveryFailed) {
					t.Errorf("expected ErrDeliveryFailed in chain, got %v", err)
				}
				if IsTransient(err) != tt.wantTransient {
					t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.wantTransient)
				}
			}
			if len(sender.last.Personalizations) != 2 {
				t.Errorf("expected one personalization per distinct recipient, got %d", len(sender.last.Personalizations))
			}
			if sender.last.From.Address != "noreply@parkslot.test" {
				t.Errorf("from = %q", sender.last.From.Address)
			}
		})
	}
}

func TestKafkaGateway_PublishesEvent(t *testing.T) {
	pub := &mockPublisher{}
	g := NewKafkaGateway(pub)
	ctx := logger.WithRequestID(context.Background(), "req-1")

	if err := g.SendEmail(ctx, []string{"a@example.com"}, "subj", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages", len(pub.published))
	}
	msg := pub.published[0]
	if msg.Key != "a@example.com" {
		t.Errorf("key = %q", msg.Key)
	}
	if msg.GetEventType() != EventEmailRequested {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-1" {
		t.Errorf("correlation id = %q", msg.GetCorrelationID())
	}
	var event EmailRequested
	if err := msg.DecodeValue(&event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Subject != "subj" || event.Body != "body" || len(event.Recipients) != 1 {
		t.Errorf("unexpected payload %+v", event)
	}
}

func TestKafkaGateway_PublishFailure(t *testing.T) {
	g := NewKafkaGateway(&mockPublisher{err: errors.New("broker down")})

	err := g.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestMultiGateway_TriesEveryChannel(t *testing.T) {
	failing := &mockGateway{sendFunc: func(ctx context.Context, r []string, s, b string) error {
		return ErrDeliveryFailed
	}}
	ok := &mockGateway{}
	m := NewMultiGateway().Add("sendgrid", failing).Add("log", ok)

	err := m.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b")

	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected joined ErrDeliveryFailed, got %v", err)
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls, ok.calls)
	}
	channels := FailedChannels(err)
	if len(channels) != 1 || channels[0] != "sendgrid" {
		t.Errorf("FailedChannels = %v", channels)
	}
}

func TestFailedChannels_BareError(t *testing.T) {
	if got := FailedChannels(errors.New("x")); len(got) != 1 || got[0] != "unknown" {
		t.Errorf("FailedChannels = %v", got)
	}
	if got := FailedChannels(nil); got != nil {
		t.Errorf("FailedChannels(nil) = %v", got)
	}
}

func TestRelay(t *testing.T) {
	event := EmailRequested{Recipients: []string{"a@example.com"}, Subject: "s", Body: "b"}

	tests := []struct {
		name          string
		msg           kafka.Message
		sendErr       error
		wantErr       bool
		wantTransient bool
		wantCalls     int
	}{
		{
			name:      "delivered",
			msg:       kafka.NewMessage().WithKey("a").WithEventType(EventEmailRequested).WithValue(event).Build(),
			wantCalls: 1,
		},
		{
			name: "other event type skipped",
			msg:  kafka.NewMessage().WithKey("a").WithEventType("something.else").WithValue(event).Build(),
		},
		{
			name:    "garbage payload",
			msg:     kafka.NewMessage().WithKey("a").WithRawValue([]byte("{")).Build(),
			wantErr: true,
		},
		{
			name:          "provider 5xx is transient",
			msg:           kafka.NewMessage().WithKey("a").WithValue(event).Build(),
			sendErr:       &DeliveryError{StatusCode: http.StatusServiceUnavailable},
			wantErr:       true,
			wantTransient: true,
			wantCalls:     1,
		},
		{
			name:      "provider 4xx is permanent",
			msg:       kafka.NewMessage().WithKey("a").WithValue(event).Build(),
			sendErr:   &DeliveryError{StatusCode: http.StatusBadRequest},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{sendFunc: func(ctx context.Context, r []string, s, b string) error {
				return tt.sendErr
			}}
			handler := NewRelay(gw, logger.Discard())

			err := handler(context.Background(), tt.msg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if gw.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", gw.calls, tt.wantCalls)
			}
			if err != nil {
				transient := kafka.ClassifyError(err) == kafka.ErrorTypeTransient
				if transient != tt.wantTransient {
					t.Errorf("transient = %v, want %v", transient, tt.wantTransient)
				}
			}
		})
	}
}

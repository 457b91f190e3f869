package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkslot/pkg/model"
)

const (
	ChannelLog      = "log"
	ChannelSendGrid = "sendgrid"
	ChannelKafka    = "kafka"
)

const ConfirmationSubject = "Booking Confirmed"

// ConfirmationTimeLayout renders start and end times in the confirmation body.
const ConfirmationTimeLayout = "2006-01-02 15:04"

var (
	ErrDeliveryFailed = errors.New("notification delivery failed")
	ErrNoRecipients   = errors.New("notification has no recipients")
)

// Gateway delivers a message to a set of e-mail addresses.
// Callers never retry within a request; a returned error is reported and dropped.
type Gateway interface {
	SendEmail(ctx context.Context, recipients []string, subject, body string) error
}

// Confirmation holds the fields rendered into the booking confirmation e-mail.
type Confirmation struct {
	Name        string
	VehicleType model.VehicleType
	SlotNumber  string
	StartTime   time.Time
	EndTime     time.Time
	BillAmount  int64
}

func ConfirmationFor(name string, booking *model.Booking) Confirmation {
	return Confirmation{
		Name:        name,
		VehicleType: booking.VehicleType,
		SlotNumber:  booking.SlotNumber,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		BillAmount:  booking.BillAmount,
	}
}

// FormatConfirmation returns the subject and body of the booking confirmation.
func FormatConfirmation(c Confirmation) (string, string) {
	lines := []string{
		"Congratulation your booking is confirmed.",
		"Name:" + c.Name,
		"Vehicle Type:" + string(c.VehicleType),
		"Slot Number:" + c.SlotNumber,
		"Start Time:" + c.StartTime.Format(ConfirmationTimeLayout),
		"End Time:" + c.EndTime.Format(ConfirmationTimeLayout),
		fmt.Sprintf("Bill Amount:%d", c.BillAmount),
		"Thankyou for using our service.",
	}
	return ConfirmationSubject, strings.Join(lines, "\n")
}

func cleanRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		key := strings.ToLower(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

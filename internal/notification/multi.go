package notification

import (
	"context"
	"errors"
	"fmt"
)

// MultiGateway sends through every channel and joins their failures.
type MultiGateway struct {
	names    []string
	gateways []Gateway
}

func NewMultiGateway() *MultiGateway {
	return &MultiGateway{}
}

func (m *MultiGateway) Add(name string, g Gateway) *MultiGateway {
	m.names = append(m.names, name)
	m.gateways = append(m.gateways, g)
	return m
}

func (m *MultiGateway) Len() int {
	return len(m.gateways)
}

// SendEmail attempts every gateway even after one fails.
func (m *MultiGateway) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	var errs []error
	for i, g := range m.gateways {
		if err := g.SendEmail(ctx, recipients, subject, body); err != nil {
			errs = append(errs, &ChannelError{Channel: m.names[i], Err: err})
		}
	}
	return errors.Join(errs...)
}

// ChannelError names the channel that failed inside a MultiGateway.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// FailedChannels lists the channel names found in err, or "unknown" for a bare error.
func FailedChannels(err error) []string {
	if err == nil {
		return nil
	}
	var channels []string
	collect(err, &channels)
	if len(channels) == 0 {
		return []string{"unknown"}
	}
	return channels
}

func collect(err error, out *[]string) {
	switch e := err.(type) {
	case *ChannelError:
		*out = append(*out, e.Channel)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collect(inner, out)
		}
	default:
		var ce *ChannelError
		if errors.As(err, &ce) {
			*out = append(*out, ce.Channel)
		}
	}
}

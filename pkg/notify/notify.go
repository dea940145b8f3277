package notify

import (
	"context"
	"fmt"
	"regexp"
)

// Sender delivers a single transactional message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound notification.
type Message struct {
	SendTo   string
	Subject  string
	BodyHTML string
	Tag      string
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks the minimal message shape before handing it to a sender.
func (m Message) Validate() error {
	if m.SendTo == "" || !emailRegex.MatchString(m.SendTo) {
		return fmt.Errorf("%w: invalid recipient %q", ErrInvalidMessage, m.SendTo)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

type noopSender struct{}

// NewNoopSender returns a Sender that silently drops everything, for
// deployments that handle billing notifications elsewhere.
func NewNoopSender() Sender {
	return noopSender{}
}

func (noopSender) Send(_ context.Context, _ Message) error { return nil }

// Package notification delivers customer-facing messages produced by domain
// events. Delivery is best effort and never blocks the state transition that
// triggered it.
package notification

import (
	"context"

	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/types"
)

// Notification is one message to deliver to a recipient
type Notification struct {
	Recipient string               `json:"recipient"`
	Subject   string               `json:"subject"`
	Body      string               `json:"body"`
	Method    types.DeliveryMethod `json:"method"`
}

// Sender delivers notifications over some channel (email, sms, both)
type Sender interface {
	Send(ctx context.Context, notification *Notification) error
}

// LogSender writes notifications to the log instead of an external channel.
// It stands in wherever a real email or sms provider is not configured.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a log-backed sender
func NewLogSender(logger *logger.Logger) Sender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, notification *Notification) error {
	s.logger.Infow("delivering notification",
		"recipient", notification.Recipient,
		"subject", notification.Subject,
		"method", string(notification.Method))
	return nil
}

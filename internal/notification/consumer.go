package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/finvoice/finvoice/internal/events"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/pubsub"
	"github.com/finvoice/finvoice/internal/types"
)

const maxDeliveryRetries = 3

// Consumer subscribes to domain events and turns them into notifications.
// A message is always acked: once retries are exhausted the failure is
// logged and the event dropped rather than wedging the subscription.
type Consumer struct {
	subscriber pubsub.Subscriber
	sender     Sender
	logger     *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewConsumer creates a consumer over the message bus
func NewConsumer(subscriber pubsub.Subscriber, sender Sender, logger *logger.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		sender:     sender,
		logger:     logger,
	}
}

// Start subscribes to all notification-producing topics
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	topics := []string{
		events.TopicPaymentCompleted,
		events.TopicInvoiceOverdue,
		events.TopicReminderDue,
	}
	for _, topic := range topics {
		messages, err := c.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		c.wg.Add(1)
		go c.consume(ctx, topic, messages)
	}
	return nil
}

// Stop cancels the subscriptions and waits for in-flight deliveries
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handle(ctx, topic, msg)
			msg.Ack()
		}
	}
}

func (c *Consumer) handle(ctx context.Context, topic string, msg *message.Message) {
	var event events.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Errorw("dropping malformed event",
			"topic", topic,
			"message_id", msg.UUID,
			"error", err)
		return
	}

	notification, err := c.buildNotification(&event)
	if err != nil {
		c.logger.Errorw("dropping unmappable event",
			"topic", topic,
			"event_id", event.ID,
			"error", err)
		return
	}
	if notification == nil {
		return
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDeliveryRetries), ctx)
	err = backoff.Retry(func() error {
		return c.sender.Send(ctx, notification)
	}, policy)
	if err != nil {
		c.logger.Errorw("notification delivery failed, giving up",
			"topic", topic,
			"event_id", event.ID,
			"recipient", notification.Recipient,
			"error", err)
	}
}

func (c *Consumer) buildNotification(event *events.Event) (*Notification, error) {
	switch event.EventName {
	case events.TopicPaymentCompleted:
		var payload events.PaymentCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		if payload.PayerEmail == "" {
			return nil, nil
		}
		return &Notification{
			Recipient: payload.PayerEmail,
			Subject:   fmt.Sprintf("Payment received for invoice %s", payload.InvoiceNumber),
			Body: fmt.Sprintf("We received your payment of %s %s for invoice %s via %s.",
				payload.Currency, payload.Amount.StringFixed(2), payload.InvoiceNumber, payload.Gateway),
			Method: types.DeliveryMethodEmail,
		}, nil

	case events.TopicInvoiceOverdue:
		var payload events.InvoiceOverduePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return &Notification{
			Recipient: payload.CustomerID,
			Subject:   fmt.Sprintf("Invoice %s is overdue", payload.InvoiceNumber),
			Body: fmt.Sprintf("Invoice %s for %s %s was due on %s and is now overdue.",
				payload.InvoiceNumber, payload.Currency, payload.Outstanding.StringFixed(2),
				payload.DueDate.Format(time.DateOnly)),
			Method: types.DeliveryMethodEmail,
		}, nil

	case events.TopicReminderDue:
		var payload events.ReminderDuePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		body := payload.Message
		if body == "" {
			body = fmt.Sprintf("Invoice %s for %s %s is due on %s.",
				payload.InvoiceNumber, payload.Currency, payload.Outstanding.StringFixed(2),
				payload.DueDate.Format(time.DateOnly))
		}
		return &Notification{
			Recipient: payload.Recipient,
			Subject:   fmt.Sprintf("Payment reminder for invoice %s", payload.InvoiceNumber),
			Body:      body,
			Method:    payload.DeliveryMethod,
		}, nil

	default:
		return nil, fmt.Errorf("no notification mapping for event %s", event.EventName)
	}
}

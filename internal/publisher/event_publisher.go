// Package publisher routes domain events onto the message bus.
package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/finvoice/finvoice/internal/events"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/pubsub"
)

// EventPublisher handles domain event publishing
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

type eventPublisher struct {
	pubsub pubsub.Publisher
	logger *logger.Logger
}

// NewEventPublisher creates a new publisher over the message bus
func NewEventPublisher(pubsub pubsub.Publisher, logger *logger.Logger) EventPublisher {
	return &eventPublisher{
		pubsub: pubsub,
		logger: logger,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Unable to encode event envelope").
			Mark(ierr.ErrInternal)
	}

	msg := message.NewMessage(event.ID, payload)
	if err := p.pubsub.Publish(ctx, event.EventName, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Unable to publish event").
			WithReportableDetails(map[string]any{
				"event_id":   event.ID,
				"event_name": event.EventName,
			}).
			Mark(ierr.ErrInternal)
	}

	p.logger.Debugw("published event",
		"event_id", event.ID,
		"event_name", event.EventName)
	return nil
}

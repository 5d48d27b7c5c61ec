package testutil

import (
	"context"
	"sync"

	"github.com/finvoice/finvoice/internal/events"
	"github.com/finvoice/finvoice/internal/publisher"
)

// InMemoryEventPublisher captures published events for assertions
type InMemoryEventPublisher struct {
	mu     sync.RWMutex
	events []*events.Event

	// FailNext makes the next Publish call return this error once
	FailNext error
}

var _ publisher.EventPublisher = (*InMemoryEventPublisher)(nil)

// NewInMemoryEventPublisher creates a new capturing publisher
func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		events: make([]*events.Event, 0),
	}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return err
	}

	p.events = append(p.events, event)
	return nil
}

// Events returns all captured events
func (p *InMemoryEventPublisher) Events() []*events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventsByTopic returns captured events published to the given topic
func (p *InMemoryEventPublisher) EventsByTopic(topic string) []*events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*events.Event, 0)
	for _, e := range p.events {
		if e.EventName == topic {
			out = append(out, e)
		}
	}
	return out
}

// Clear removes all captured events
func (p *InMemoryEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]*events.Event, 0)
	p.FailNext = nil
}

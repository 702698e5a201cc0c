package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// EventSink receives events once the unit of work that produced them was flushed.
type EventSink interface {
	Deliver(ctx context.Context, envelopes []domain.Envelope) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, envelopes []domain.Envelope) error

func (f EventSinkFunc) Deliver(ctx context.Context, envelopes []domain.Envelope) error {
	return f(ctx, envelopes)
}

// DiscardSink drops every delivered event.
type DiscardSink struct{}

func (DiscardSink) Deliver(context.Context, []domain.Envelope) error { return nil }

// DomainEventBus queues events raised during a unit of work and releases
// them to the sink after a successful flush.
type DomainEventBus struct {
	sink     EventSink
	metadata domain.EventMetadata

	mu       sync.Mutex
	pending  []domain.Envelope
	released bool
}

// NewDomainEventBus creates a bus that stamps metadata on every queued envelope.
func NewDomainEventBus(sink EventSink, metadata domain.EventMetadata) *DomainEventBus {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &DomainEventBus{sink: sink, metadata: metadata}
}

// Publish queues env for post-flush delivery.
func (b *DomainEventBus) Publish(env domain.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return fmt.Errorf("%w: publish after release", domain.ErrContractViolation)
	}
	ApplyEventMetadata([]*domain.Envelope{&env}, b.metadata)
	b.pending = append(b.pending, env)
	return nil
}

// Pending returns the queued envelopes in publish order.
func (b *DomainEventBus) Pending() []domain.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Envelope, len(b.pending))
	copy(out, b.pending)
	return out
}

// Released reports whether the queued events were handed to the sink.
func (b *DomainEventBus) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

func (b *DomainEventBus) release(ctx context.Context) (int, error) {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return 0, fmt.Errorf("%w: events released twice", domain.ErrContractViolation)
	}
	b.released = true
	envelopes := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(envelopes) == 0 {
		return 0, nil
	}
	if err := b.sink.Deliver(ctx, envelopes); err != nil {
		return 0, fmt.Errorf("failed to deliver %d events: %w", len(envelopes), err)
	}
	return len(envelopes), nil
}

func (b *DomainEventBus) discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.pending)
	b.pending = nil
	return n
}

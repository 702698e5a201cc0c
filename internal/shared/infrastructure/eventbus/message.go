package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/google/uuid"
)

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the schema names this consumer handles,
	// e.g. ["number.created", "number.value_added"]. AllEvents subscribes to every event.
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, msg *Message) error
}

// AllEvents is the event type that matches every routing key.
const AllEvents = "#"

// Message is the wire form of a released domain event.
type Message struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Version       uint64          `json:"version"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      MessageMetadata `json:"metadata"`
}

// MessageMetadata carries tracing identifiers.
type MessageMetadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	CausationID   string `json:"causation_id,omitempty"`
}

// NewMessage converts a released envelope to its wire form.
func NewMessage(env domain.Envelope) (*Message, error) {
	if env.Event == nil {
		return nil, fmt.Errorf("%w: envelope %s has no event", domain.ErrContractViolation, env.EventID)
	}
	payload, err := json.Marshal(env.Event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", env.RoutingKey(), err)
	}

	msg := &Message{
		EventID:       env.EventID,
		AggregateType: env.AggregateType,
		AggregateID:   fmt.Sprint(env.AggregateID),
		Version:       uint64(env.Version),
		RoutingKey:    env.RoutingKey(),
		OccurredAt:    env.OccurredAt,
		Payload:       payload,
	}
	if env.Metadata.CorrelationID != uuid.Nil {
		msg.Metadata.CorrelationID = env.Metadata.CorrelationID.String()
	}
	if env.Metadata.CausationID != uuid.Nil {
		msg.Metadata.CausationID = env.Metadata.CausationID.String()
	}
	return msg, nil
}

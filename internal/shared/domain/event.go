package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schema is a persisted payload identified by a stable schema name.
// The name is written next to the payload and selects the Go type on decode.
type Schema interface {
	SchemaName() string
}

// Event is a single state change recorded by an aggregate.
type Event interface {
	Schema
}

// CreationEvent is the event that starts an aggregate's stream.
type CreationEvent interface {
	Event
	isCreation()
}

// Created is embedded by events that create an aggregate.
type Created struct{}

func (Created) isCreation() {}

// IsCreation reports whether e starts an aggregate's stream.
func IsCreation(e Event) bool {
	_, ok := e.(CreationEvent)
	return ok
}

// TombstoneSchema is the schema name of the terminal deletion marker.
const TombstoneSchema = "aggregate.deleted"

// Tombstone is the terminal record written for soft-deleted aggregates.
// It is valid both as an event and as a snapshot payload.
type Tombstone struct{}

func (Tombstone) SchemaName() string { return TombstoneSchema }

// RestoreAggregate always fails: a tombstone has no state to restore.
func (Tombstone) RestoreAggregate() (any, error) { return nil, ErrAggregateDeleted }

// IsTombstone reports whether s is the deletion marker.
func IsTombstone(s Schema) bool {
	_, ok := s.(Tombstone)
	return ok
}

// EventMetadata contains tracing and context information for events.
type EventMetadata struct {
	CorrelationID uuid.UUID
	CausationID   uuid.UUID
}

// Envelope is the released form of a flushed event: the exact event instance
// together with the identity and version it was persisted under.
type Envelope struct {
	EventID       uuid.UUID
	AggregateType string
	AggregateID   any
	Version       Version
	OccurredAt    time.Time
	Event         Event
	Metadata      EventMetadata
}

// RoutingKey returns the key used to route the envelope to subscribers.
func (e Envelope) RoutingKey() string {
	return e.Event.SchemaName()
}

// NewEnvelope wraps a flushed event record for release.
func NewEnvelope[K comparable](aggregateType string, rec Record[K]) Envelope {
	return Envelope{
		EventID:       rec.EventID,
		AggregateType: aggregateType,
		AggregateID:   rec.AggregateID,
		Version:       rec.Version,
		OccurredAt:    rec.RecordedAt,
		Event:         rec.Payload,
	}
}

package persistence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/google/uuid"
)

// KeyCodec converts aggregate keys to and from their stored string form.
type KeyCodec[K comparable] interface {
	EncodeKey(id K) string
	DecodeKey(s string) (K, error)
}

// StringKeys stores string keys as-is.
type StringKeys struct{}

func (StringKeys) EncodeKey(id string) string         { return id }
func (StringKeys) DecodeKey(s string) (string, error) { return s, nil }

// UUIDKeys stores UUID keys in canonical form.
type UUIDKeys struct{}

func (UUIDKeys) EncodeKey(id uuid.UUID) string { return id.String() }
func (UUIDKeys) DecodeKey(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// Int64Keys stores integer keys in decimal form.
type Int64Keys struct{}

func (Int64Keys) EncodeKey(id int64) string { return strconv.FormatInt(id, 10) }
func (Int64Keys) DecodeKey(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// StoredRecord is the storage-agnostic form of a snapshot or event.
type StoredRecord struct {
	AggregateID string          `json:"aggregate_id"`
	Version     uint64          `json:"version"`
	Kind        string          `json:"kind"`
	Schema      string          `json:"schema"`
	EventID     string          `json:"event_id,omitempty"`
	Data        json.RawMessage `json:"data"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// RecordCodec converts records to their stored form using a schema registry.
type RecordCodec[K comparable] struct {
	Keys     KeyCodec[K]
	Registry *domain.Registry
}

// NewRecordCodec creates a codec.
func NewRecordCodec[K comparable](keys KeyCodec[K], registry *domain.Registry) RecordCodec[K] {
	return RecordCodec[K]{Keys: keys, Registry: registry}
}

// Encode converts rec to its stored form.
func (c RecordCodec[K]) Encode(rec domain.Record[K]) (StoredRecord, error) {
	schema, data, err := c.Registry.Encode(rec.Payload)
	if err != nil {
		return StoredRecord{}, err
	}
	sr := StoredRecord{
		AggregateID: c.Keys.EncodeKey(rec.AggregateID),
		Version:     uint64(rec.Version),
		Kind:        rec.Kind.String(),
		Schema:      schema,
		Data:        data,
		RecordedAt:  rec.RecordedAt,
	}
	if rec.EventID != uuid.Nil {
		sr.EventID = rec.EventID.String()
	}
	return sr, nil
}

// Decode rebuilds a record. Payloads keep their stored schema; upgrading is
// left to the serialization strategy.
func (c RecordCodec[K]) Decode(sr StoredRecord) (domain.Record[K], error) {
	id, err := c.Keys.DecodeKey(sr.AggregateID)
	if err != nil {
		return domain.Record[K]{}, fmt.Errorf("%w: key %q: %v", domain.ErrCouldNotRestore, sr.AggregateID, err)
	}

	var kind domain.RecordKind
	switch sr.Kind {
	case domain.KindEvent.String():
		kind = domain.KindEvent
	case domain.KindSnapshot.String():
		kind = domain.KindSnapshot
	default:
		return domain.Record[K]{}, fmt.Errorf("%w: record kind %q", domain.ErrCouldNotRestore, sr.Kind)
	}

	payload, err := c.Registry.Decode(sr.Schema, sr.Data)
	if err != nil {
		return domain.Record[K]{}, err
	}

	rec := domain.Record[K]{
		AggregateID: id,
		Version:     domain.Version(sr.Version),
		Kind:        kind,
		Payload:     payload,
		RecordedAt:  sr.RecordedAt,
	}
	if sr.EventID != "" {
		eventID, err := uuid.Parse(sr.EventID)
		if err != nil {
			return domain.Record[K]{}, fmt.Errorf("%w: event id %q: %v", domain.ErrCouldNotRestore, sr.EventID, err)
		}
		rec.EventID = eventID
	}
	return rec, nil
}

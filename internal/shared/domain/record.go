package domain

import (
	"time"

	"github.com/google/uuid"
)

// Version is the optimistic-concurrency token of an aggregate.
// Zero means the aggregate was never persisted.
type Version uint64

// InitialVersion is the version of a newly created aggregate.
const InitialVersion Version = 1

// Next returns the version that follows v.
func (v Version) Next() Version {
	return v + 1
}

// RecordKind tells whether a record holds a snapshot or a single event.
type RecordKind uint8

const (
	KindEvent RecordKind = iota + 1
	KindSnapshot
)

func (k RecordKind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Record is an immutable snapshot or event tagged with aggregate id and version.
type Record[K comparable] struct {
	AggregateID K
	Version     Version
	Kind        RecordKind
	Payload     Schema
	EventID     uuid.UUID
	RecordedAt  time.Time
}

// NewEventRecord tags e with id and version.
func NewEventRecord[K comparable](id K, version Version, e Event) Record[K] {
	return Record[K]{
		AggregateID: id,
		Version:     version,
		Kind:        KindEvent,
		Payload:     e,
		EventID:     uuid.New(),
		RecordedAt:  time.Now().UTC(),
	}
}

// NewSnapshotRecord tags s with id and version.
func NewSnapshotRecord[K comparable](id K, version Version, s Snapshot) Record[K] {
	return Record[K]{
		AggregateID: id,
		Version:     version,
		Kind:        KindSnapshot,
		Payload:     s,
		RecordedAt:  time.Now().UTC(),
	}
}

// IsSnapshot reports whether the record holds a full snapshot.
func (r Record[K]) IsSnapshot() bool {
	return r.Kind == KindSnapshot
}

// IsTombstone reports whether the record is the terminal deletion marker.
func (r Record[K]) IsTombstone() bool {
	return IsTombstone(r.Payload)
}

// UpdateToLatestVersion returns a copy of r whose payload has been upgraded
// through its chain of superseded schemas.
func (r Record[K]) UpdateToLatestVersion() (Record[K], error) {
	payload, err := UpgradeToLatest(r.Payload)
	if err != nil {
		return Record[K]{}, err
	}
	r.Payload = payload
	return r, nil
}

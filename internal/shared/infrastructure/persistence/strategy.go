package persistence

import (
	"fmt"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// StrategyKind names a serialization policy.
type StrategyKind string

const (
	// StrategySnapshots stores a full snapshot on every write.
	StrategySnapshots StrategyKind = "snapshots"
	// StrategyEvents appends pending events on every write.
	StrategyEvents StrategyKind = "events"
	// StrategyEventsWithSnapshots appends events and adds a snapshot every N events.
	StrategyEventsWithSnapshots StrategyKind = "events-with-snapshots"
)

// ParseStrategyKind validates a configured strategy name.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch k := StrategyKind(s); k {
	case StrategySnapshots, StrategyEvents, StrategyEventsWithSnapshots:
		return k, nil
	default:
		return "", fmt.Errorf("unknown serialization strategy %q", s)
	}
}

// SerializationStrategy turns aggregates into data set fragments and back.
type SerializationStrategy[K comparable, A domain.AggregateRoot[K]] interface {
	Kind() StrategyKind
	// Encode returns the fragment to insert or update for a.
	Encode(a A) (domain.DataSet[K], error)
	// Decode restores an aggregate. A tombstoned data set yields domain.ErrAggregateDeleted.
	Decode(ds domain.DataSet[K]) (A, error)
}

// Factory creates an empty aggregate that events are replayed onto.
type Factory[A any] func() A

type strategy[K comparable, A domain.AggregateRoot[K]] struct {
	kind         StrategyKind
	threshold    int
	newAggregate Factory[A]
}

// Snapshots returns the snapshot-only strategy.
func Snapshots[K comparable, A domain.AggregateRoot[K]]() SerializationStrategy[K, A] {
	return &strategy[K, A]{kind: StrategySnapshots}
}

// Events returns the event-only strategy.
func Events[K comparable, A domain.AggregateRoot[K]](newAggregate Factory[A]) SerializationStrategy[K, A] {
	return &strategy[K, A]{kind: StrategyEvents, newAggregate: newAggregate}
}

// EventsWithSnapshotThreshold returns the hybrid strategy taking a snapshot every n events.
func EventsWithSnapshotThreshold[K comparable, A domain.AggregateRoot[K]](newAggregate Factory[A], n int) SerializationStrategy[K, A] {
	return &strategy[K, A]{kind: StrategyEventsWithSnapshots, newAggregate: newAggregate, threshold: n}
}

// NewStrategy builds the strategy selected by kind.
func NewStrategy[K comparable, A domain.AggregateRoot[K]](kind StrategyKind, newAggregate Factory[A], threshold int) (SerializationStrategy[K, A], error) {
	switch kind {
	case StrategySnapshots:
		return Snapshots[K, A](), nil
	case StrategyEvents:
		if newAggregate == nil {
			return nil, fmt.Errorf("%w: events strategy needs an aggregate factory", domain.ErrContractViolation)
		}
		return Events[K, A](newAggregate), nil
	case StrategyEventsWithSnapshots:
		if newAggregate == nil {
			return nil, fmt.Errorf("%w: events strategy needs an aggregate factory", domain.ErrContractViolation)
		}
		if threshold <= 0 {
			return nil, fmt.Errorf("%w: snapshot threshold must be positive, got %d", domain.ErrContractViolation, threshold)
		}
		return EventsWithSnapshotThreshold[K, A](newAggregate, threshold), nil
	default:
		return nil, fmt.Errorf("unknown serialization strategy %q", kind)
	}
}

func (s *strategy[K, A]) Kind() StrategyKind {
	return s.kind
}

func (s *strategy[K, A]) Encode(a A) (domain.DataSet[K], error) {
	ds := domain.DataSet[K]{
		AggregateID:     a.AggregateID(),
		ExpectedVersion: a.PersistedVersion(),
	}

	switch s.kind {
	case StrategySnapshots:
		rec, err := snapshotOf[K](a)
		if err != nil {
			return domain.DataSet[K]{}, err
		}
		ds.Snapshot = &rec
	case StrategyEvents:
		ds.Events = a.PendingEvents()
	case StrategyEventsWithSnapshots:
		ds.Events = a.PendingEvents()
		if a.EventsSinceSnapshot()+len(ds.Events) >= s.threshold {
			rec, err := snapshotOf[K](a)
			if err != nil {
				return domain.DataSet[K]{}, err
			}
			ds.Snapshot = &rec
		}
	}
	return ds, nil
}

func (s *strategy[K, A]) Decode(ds domain.DataSet[K]) (A, error) {
	var zero A
	if ds.IsEmpty() {
		return zero, couldNotRestore("data set for %v is empty", ds.AggregateID)
	}

	switch s.kind {
	case StrategySnapshots:
		if ds.Snapshot == nil {
			return zero, couldNotRestore("data set for %v has no snapshot", ds.AggregateID)
		}
		return s.fromSnapshot(*ds.Snapshot, nil)
	case StrategyEvents:
		if len(ds.Events) == 0 {
			return zero, couldNotRestore("data set for %v has no events", ds.AggregateID)
		}
		return s.fromEvents(ds.Events)
	default:
		if ds.Snapshot != nil {
			return s.fromSnapshot(*ds.Snapshot, ds.Events)
		}
		return s.fromEvents(ds.Events)
	}
}

func (s *strategy[K, A]) fromSnapshot(rec domain.Record[K], trailing []domain.Record[K]) (A, error) {
	var zero A

	rec, err := rec.UpdateToLatestVersion()
	if err != nil {
		return zero, err
	}
	if rec.IsTombstone() {
		return zero, domain.ErrAggregateDeleted
	}

	snap, ok := rec.Payload.(domain.Snapshot)
	if !ok {
		return zero, couldNotRestore("%s is not a snapshot", rec.Payload.SchemaName())
	}
	restored, err := snap.RestoreAggregate()
	if err != nil {
		return zero, couldNotRestore("snapshot %s: %v", rec.Payload.SchemaName(), err)
	}
	a, ok := restored.(A)
	if !ok || isNil(a) {
		return zero, couldNotRestore("snapshot %s produced %T, want %T", rec.Payload.SchemaName(), restored, zero)
	}
	a.Observe(rec)

	var after []domain.Record[K]
	for _, e := range trailing {
		if e.Version > rec.Version {
			after = append(after, e)
		}
	}
	if err := replay(a, after, rec.Version.Next()); err != nil {
		return zero, err
	}
	if a.IsDeleted() {
		return zero, domain.ErrAggregateDeleted
	}
	return a, nil
}

func (s *strategy[K, A]) fromEvents(events []domain.Record[K]) (A, error) {
	var zero A

	first, err := events[0].UpdateToLatestVersion()
	if err != nil {
		return zero, err
	}
	if !domain.IsCreation(first.Payload) {
		return zero, couldNotRestore("stream of %v starts with %s, not a creation event", first.AggregateID, first.Payload.SchemaName())
	}

	a := s.newAggregate()
	if err := replay(a, events, domain.InitialVersion); err != nil {
		return zero, err
	}
	if a.IsDeleted() {
		return zero, domain.ErrAggregateDeleted
	}
	return a, nil
}

func replay[K comparable, A domain.AggregateRoot[K]](a A, events []domain.Record[K], expected domain.Version) error {
	for _, rec := range events {
		if rec.Version != expected {
			return couldNotRestore("expected version %d of %v, got %d", expected, rec.AggregateID, rec.Version)
		}
		rec, err := rec.UpdateToLatestVersion()
		if err != nil {
			return err
		}
		if !rec.IsTombstone() {
			if err := a.Apply(rec.Payload); err != nil {
				return couldNotRestore("replaying %s at version %d: %v", rec.Payload.SchemaName(), rec.Version, err)
			}
		}
		a.Observe(rec)
		expected = expected.Next()
	}
	return nil
}

func snapshotOf[K comparable, A domain.AggregateRoot[K]](a A) (domain.Record[K], error) {
	if a.IsDeleted() {
		return domain.NewSnapshotRecord(a.AggregateID(), a.Version(), domain.Snapshot(domain.Tombstone{})), nil
	}
	snap, err := a.TakeSnapshot()
	if err != nil {
		return domain.Record[K]{}, fmt.Errorf("take snapshot of %v: %w", a.AggregateID(), err)
	}
	if snap == nil {
		return domain.Record[K]{}, fmt.Errorf("%w: %s returned no snapshot", domain.ErrContractViolation, a.AggregateType())
	}
	return domain.NewSnapshotRecord(a.AggregateID(), a.Version(), snap), nil
}

func couldNotRestore(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrCouldNotRestore, fmt.Sprintf(format, args...))
}

package domain

// Snapshot is the full state of an aggregate at one version.
type Snapshot interface {
	Schema
	// RestoreAggregate builds the aggregate described by the snapshot.
	// Identity and version are applied afterwards from the enclosing record.
	RestoreAggregate() (any, error)
}

// AggregateRoot is the contract repositories and serialization strategies rely on.
// Concrete aggregates embed BaseAggregateRoot and add Apply and TakeSnapshot.
type AggregateRoot[K comparable] interface {
	AggregateID() K
	AggregateType() string
	Version() Version
	PersistedVersion() Version
	IsNew() bool
	HasChanges() bool
	PendingEvents() []Record[K]
	EventsSinceSnapshot() int

	SoftDeleteEnabled() bool
	IsDeleted() bool
	MarkDeleted()
	RevertDeleted()

	// Apply mutates state for a replayed event.
	Apply(e Event) error
	// TakeSnapshot captures the full state at the current version.
	TakeSnapshot() (Snapshot, error)
	// Observe advances identity and version after a record was restored.
	Observe(rec Record[K])
	// MarkCommitted clears pending events after a successful flush.
	MarkCommitted(snapshotTaken bool)
}

// BaseAggregateRoot provides versioning and pending-event bookkeeping.
type BaseAggregateRoot[K comparable] struct {
	id            K
	aggregateType string
	version       Version
	persisted     Version
	pending       []Record[K]
	sinceSnapshot int
	isNew         bool
	softDelete    bool
	deleted       bool
}

// NewBaseAggregateRoot creates the base of a new, never persisted aggregate.
func NewBaseAggregateRoot[K comparable](aggregateType string, id K) BaseAggregateRoot[K] {
	return BaseAggregateRoot[K]{
		id:            id,
		aggregateType: aggregateType,
		isNew:         true,
	}
}

// RehydrateBaseAggregateRoot creates the base of an aggregate about to be restored from storage.
func RehydrateBaseAggregateRoot[K comparable](aggregateType string) BaseAggregateRoot[K] {
	return BaseAggregateRoot[K]{aggregateType: aggregateType}
}

func (a *BaseAggregateRoot[K]) AggregateID() K            { return a.id }
func (a *BaseAggregateRoot[K]) AggregateType() string     { return a.aggregateType }
func (a *BaseAggregateRoot[K]) Version() Version          { return a.version }
func (a *BaseAggregateRoot[K]) PersistedVersion() Version { return a.persisted }
func (a *BaseAggregateRoot[K]) IsNew() bool               { return a.isNew }
func (a *BaseAggregateRoot[K]) HasChanges() bool          { return len(a.pending) > 0 }
func (a *BaseAggregateRoot[K]) EventsSinceSnapshot() int  { return a.sinceSnapshot }
func (a *BaseAggregateRoot[K]) IsDeleted() bool           { return a.deleted }

// NextVersion returns the version the next recorded event will carry.
func (a *BaseAggregateRoot[K]) NextVersion() Version {
	return a.version.Next()
}

// PendingEvents returns the events recorded since the last flush, oldest first.
func (a *BaseAggregateRoot[K]) PendingEvents() []Record[K] {
	out := make([]Record[K], len(a.pending))
	copy(out, a.pending)
	return out
}

// Record appends e to the pending events under the next version.
// State changes are the caller's job; see Raise.
func (a *BaseAggregateRoot[K]) Record(e Event) {
	a.version = a.version.Next()
	a.pending = append(a.pending, NewEventRecord(a.id, a.version, e))
}

// EnableSoftDelete switches removal from physical deletion to a tombstone update.
// The value at flush time wins.
func (a *BaseAggregateRoot[K]) EnableSoftDelete(enabled bool) {
	a.softDelete = enabled
}

// SoftDeleteEnabled reports whether removal writes a tombstone.
func (a *BaseAggregateRoot[K]) SoftDeleteEnabled() bool {
	return a.softDelete
}

// MarkDeleted records the terminal tombstone event. It is a no-op once deleted.
func (a *BaseAggregateRoot[K]) MarkDeleted() {
	if a.deleted {
		return
	}
	a.Record(Tombstone{})
	a.deleted = true
}

// RevertDeleted withdraws the tombstone recorded by MarkDeleted while it is
// still pending. A persisted tombstone stays.
func (a *BaseAggregateRoot[K]) RevertDeleted() {
	n := len(a.pending)
	if !a.deleted || n == 0 || !a.pending[n-1].IsTombstone() {
		return
	}
	a.version = a.pending[n-1].Version - 1
	a.pending = a.pending[:n-1]
	a.deleted = false
}

// Observe advances the aggregate to rec after its payload has been applied.
func (a *BaseAggregateRoot[K]) Observe(rec Record[K]) {
	a.id = rec.AggregateID
	a.version = rec.Version
	a.persisted = rec.Version
	a.isNew = false
	if rec.IsTombstone() {
		a.deleted = true
	}
	if rec.IsSnapshot() {
		a.sinceSnapshot = 0
		return
	}
	a.sinceSnapshot++
}

// MarkCommitted clears pending events after they were written.
func (a *BaseAggregateRoot[K]) MarkCommitted(snapshotTaken bool) {
	if snapshotTaken {
		a.sinceSnapshot = 0
	} else {
		a.sinceSnapshot += len(a.pending)
	}
	a.pending = nil
	a.persisted = a.version
	a.isNew = false
}

// Recorder is implemented by aggregates embedding BaseAggregateRoot.
type Recorder interface {
	Record(e Event)
}

// Raise applies e through the aggregate's handler table and records it as pending.
func Raise[A Recorder](a A, handlers *EventHandlers[A], e Event) error {
	if err := handlers.Apply(a, e); err != nil {
		return err
	}
	a.Record(e)
	return nil
}

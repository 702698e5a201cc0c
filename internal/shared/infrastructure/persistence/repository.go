package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/pkg/observability"
)

// Repository caches the aggregates of one type touched during a unit of work
// and writes their changes as a single change set when the unit of work flushes.
// A Repository belongs to exactly one unit of work and is not safe for concurrent use.
type Repository[K comparable, A domain.AggregateRoot[K]] struct {
	aggregateType string
	uow           *application.UnitOfWork
	storage       Storage[K]
	strategy      SerializationStrategy[K, A]
	logger        *slog.Logger
	metrics       observability.Metrics

	entries map[K]*entry[K, A]
	order   []K
	flushed bool
}

var _ application.Participant = (*Repository[string, domain.AggregateRoot[string]])(nil)

// NewRepository creates a repository bound to uow.
func NewRepository[K comparable, A domain.AggregateRoot[K]](
	uow *application.UnitOfWork,
	aggregateType string,
	storage Storage[K],
	strategy SerializationStrategy[K, A],
) *Repository[K, A] {
	return &Repository[K, A]{
		aggregateType: aggregateType,
		uow:           uow,
		storage:       storage,
		strategy:      strategy,
		logger:        uow.Logger().With("aggregate_type", aggregateType),
		metrics:       uow.Metrics(),
		entries:       make(map[K]*entry[K, A]),
	}
}

type repositoryKey struct {
	aggregateType string
}

// RepositoryFor returns the repository of aggregateType for uow, creating it
// on first use. Every scope of one unit of work shares the same instance.
func RepositoryFor[K comparable, A domain.AggregateRoot[K]](
	uow *application.UnitOfWork,
	aggregateType string,
	storage Storage[K],
	strategy SerializationStrategy[K, A],
) (*Repository[K, A], error) {
	return application.Resolve(uow.Dependencies(), repositoryKey{aggregateType}, func() (*Repository[K, A], error) {
		return NewRepository(uow, aggregateType, storage, strategy), nil
	})
}

// AggregateType returns the aggregate type the repository serves.
func (r *Repository[K, A]) AggregateType() string {
	return r.aggregateType
}

// GetByIDOrNil returns the tracked aggregate or loads it from storage.
// It returns the zero value when the aggregate is absent, soft-deleted or removed.
func (r *Repository[K, A]) GetByIDOrNil(ctx context.Context, id K) (A, error) {
	var zero A
	if err := r.enlist(); err != nil {
		return zero, err
	}

	if e, ok := r.entries[id]; ok {
		if e.state == StateRemoved {
			return zero, nil
		}
		r.metrics.Counter(observability.MetricRepositoryCacheHit, 1, observability.T("aggregate_type", r.aggregateType))
		return e.aggregate, nil
	}

	a, found, err := r.load(ctx, id)
	if err != nil || !found {
		return zero, err
	}
	r.track(id, a, StateUnmodified)
	return a, nil
}

// GetByID is GetByIDOrNil with absence reported as domain.ErrAggregateNotFound.
func (r *Repository[K, A]) GetByID(ctx context.Context, id K) (A, error) {
	a, err := r.GetByIDOrNil(ctx, id)
	if err != nil {
		return a, err
	}
	if isNil(a) {
		return a, domain.NewAggregateError("get", r.aggregateType, id, domain.ErrAggregateNotFound)
	}
	return a, nil
}

// Add starts tracking a new aggregate. It returns false when this instance is
// already tracked and domain.ErrDuplicateKey when its id belongs to another
// instance or already exists in storage.
func (r *Repository[K, A]) Add(ctx context.Context, a A) (bool, error) {
	if isNil(a) {
		return false, fmt.Errorf("%w: add nil %s aggregate", domain.ErrContractViolation, r.aggregateType)
	}
	if err := r.enlist(); err != nil {
		return false, err
	}

	id := a.AggregateID()
	if e, ok := r.entries[id]; ok {
		if sameInstance(e.aggregate, a) {
			return false, nil
		}
		return false, domain.NewAggregateError("add", r.aggregateType, id, domain.ErrDuplicateKey)
	}

	ds, err := r.storage.SelectByID(ctx, id)
	if err != nil {
		return false, domain.NewAggregateError("add", r.aggregateType, id, err)
	}
	if ds != nil {
		return false, domain.NewAggregateError("add", r.aggregateType, id, domain.ErrDuplicateKey)
	}

	r.track(id, a, StateAdded)
	return true, nil
}

// Remove marks a tracked aggregate for removal. Removing an aggregate added
// in the same unit of work forgets it. It returns false for nil, untracked,
// already removed or foreign instances.
func (r *Repository[K, A]) Remove(ctx context.Context, a A) (bool, error) {
	if isNil(a) {
		return false, nil
	}
	if err := r.enlist(); err != nil {
		return false, err
	}

	id := a.AggregateID()
	e, ok := r.entries[id]
	if !ok || e.state == StateRemoved || !sameInstance(e.aggregate, a) {
		return false, nil
	}

	if e.state == StateAdded {
		r.untrack(id)
		return true, nil
	}
	e.state = StateRemoved
	return true, nil
}

// RemoveByID loads the aggregate with id and removes it.
func (r *Repository[K, A]) RemoveByID(ctx context.Context, id K) (bool, error) {
	a, err := r.GetByIDOrNil(ctx, id)
	if err != nil || isNil(a) {
		return false, err
	}
	return r.Remove(ctx, a)
}

// State returns the tracking state of id.
func (r *Repository[K, A]) State(id K) TrackingState {
	e, ok := r.entries[id]
	if !ok {
		return StateNull
	}
	return e.current()
}

// RequiresFlush reports whether any tracked aggregate has something to write.
func (r *Repository[K, A]) RequiresFlush() bool {
	if r.flushed {
		return false
	}
	for _, id := range r.order {
		switch r.entries[id].current() {
		case StateAdded, StateModified, StateRemoved:
			return true
		}
	}
	return false
}

// Flush writes the tracked changes as one change set and queues the written
// events for release. It runs at most once.
func (r *Repository[K, A]) Flush(ctx context.Context) error {
	if r.flushed {
		return fmt.Errorf("%w: %s repository flushed twice", domain.ErrContractViolation, r.aggregateType)
	}
	r.flushed = true

	start := time.Now()
	changes, written, err := r.changeSet()
	if err != nil {
		return err
	}
	if changes.IsEmpty() {
		return nil
	}

	if err := r.storage.Flush(ctx, changes); err != nil {
		r.revertTombstones(written)
		r.logger.ErrorContext(ctx, "repository flush failed",
			"inserts", len(changes.Inserts),
			"updates", len(changes.Updates),
			"deletes", len(changes.Deletes),
			"error", err,
		)
		return fmt.Errorf("flush %s: %w", r.aggregateType, err)
	}

	for _, w := range written {
		for _, rec := range w.aggregate.PendingEvents() {
			if err := r.uow.Events().Publish(domain.NewEnvelope(r.aggregateType, rec)); err != nil {
				return err
			}
		}
		w.aggregate.MarkCommitted(w.snapshot)
	}

	r.metrics.Counter(observability.MetricRepositoryFlush, int64(changes.Len()), observability.T("aggregate_type", r.aggregateType))
	r.logger.DebugContext(ctx, "repository flushed",
		"inserts", len(changes.Inserts),
		"updates", len(changes.Updates),
		"deletes", len(changes.Deletes),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

type writtenAggregate[A any] struct {
	aggregate  A
	snapshot   bool
	tombstoned bool
}

// revertTombstones withdraws the tombstones recorded for a flush that did not
// reach storage, so the aggregates keep the state the caller left them in.
func (r *Repository[K, A]) revertTombstones(written []writtenAggregate[A]) {
	for _, w := range written {
		if w.tombstoned {
			w.aggregate.RevertDeleted()
		}
	}
}

// changeSet folds the final tracking state of every entry into a change set,
// in first-touch order.
func (r *Repository[K, A]) changeSet() (domain.ChangeSet[K], []writtenAggregate[A], error) {
	changes := domain.ChangeSet[K]{AggregateType: r.aggregateType}
	var written []writtenAggregate[A]

	for _, id := range r.order {
		e := r.entries[id]
		switch e.current() {
		case StateAdded:
			ds, err := r.strategy.Encode(e.aggregate)
			if err != nil {
				r.revertTombstones(written)
				return changes, nil, domain.NewAggregateError("insert", r.aggregateType, id, err)
			}
			changes.Inserts = append(changes.Inserts, ds)
			written = append(written, writtenAggregate[A]{aggregate: e.aggregate, snapshot: ds.Snapshot != nil})
		case StateModified:
			ds, err := r.strategy.Encode(e.aggregate)
			if err != nil {
				r.revertTombstones(written)
				return changes, nil, domain.NewAggregateError("update", r.aggregateType, id, err)
			}
			changes.Updates = append(changes.Updates, ds)
			written = append(written, writtenAggregate[A]{aggregate: e.aggregate, snapshot: ds.Snapshot != nil})
		case StateRemoved:
			if !e.aggregate.SoftDeleteEnabled() {
				changes.Deletes = append(changes.Deletes, id)
				continue
			}
			tombstoned := !e.aggregate.IsDeleted()
			e.aggregate.MarkDeleted()
			w := writtenAggregate[A]{aggregate: e.aggregate, tombstoned: tombstoned}
			ds, err := r.strategy.Encode(e.aggregate)
			if err != nil {
				r.revertTombstones(append(written, w))
				return changes, nil, domain.NewAggregateError("delete", r.aggregateType, id, err)
			}
			w.snapshot = ds.Snapshot != nil
			changes.Updates = append(changes.Updates, ds)
			written = append(written, w)
		}
	}
	return changes, written, nil
}

func (r *Repository[K, A]) load(ctx context.Context, id K) (A, bool, error) {
	var zero A

	r.metrics.Counter(observability.MetricRepositoryLoad, 1, observability.T("aggregate_type", r.aggregateType))
	ds, err := r.storage.SelectByID(ctx, id)
	if err != nil {
		return zero, false, domain.NewAggregateError("load", r.aggregateType, id, err)
	}
	if ds == nil {
		return zero, false, nil
	}

	a, err := r.strategy.Decode(*ds)
	if errors.Is(err, domain.ErrAggregateDeleted) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, domain.NewAggregateError("load", r.aggregateType, id, err)
	}
	if a.AggregateID() != id {
		return zero, false, domain.NewAggregateError("load", r.aggregateType, id,
			couldNotRestore("data set restored aggregate %v", a.AggregateID()))
	}
	return a, true, nil
}

func (r *Repository[K, A]) enlist() error {
	return r.uow.Enlist(r)
}

func (r *Repository[K, A]) track(id K, a A, state TrackingState) {
	r.entries[id] = &entry[K, A]{aggregate: a, state: state}
	r.order = append(r.order, id)
}

func (r *Repository[K, A]) untrack(id K) {
	delete(r.entries, id)
	for i, k := range r.order {
		if k == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/google/uuid"
)

// Participant takes part in the flush of a unit of work.
// Participants are compared by identity, so implementations should be pointers.
type Participant interface {
	// RequiresFlush reports whether the participant has anything to write.
	RequiresFlush() bool
	// Flush writes the participant's changes. It is called at most once.
	Flush(ctx context.Context) error
}

// UnitOfWork is the state shared by every scope of one logical operation.
// It owns the enlisted participants, a DependencyCache and a DomainEventBus.
type UnitOfWork struct {
	id      uuid.UUID
	logger  *slog.Logger
	metrics observability.Metrics

	mu           sync.Mutex
	participants []Participant
	enlisted     map[Participant]struct{}
	flushed      bool
	disposed     bool

	dependencies *DependencyCache
	events       *DomainEventBus
}

func newUnitOfWork(ctx context.Context, sink EventSink, logger *slog.Logger, metrics observability.Metrics) *UnitOfWork {
	return &UnitOfWork{
		id:           uuid.New(),
		logger:       observability.LogOperation(logger, "unit_of_work"),
		metrics:      metrics,
		enlisted:     make(map[Participant]struct{}),
		dependencies: NewDependencyCache(),
		events:       NewDomainEventBus(sink, NewEventMetadata(ctx)),
	}
}

// ID identifies the unit of work in logs.
func (u *UnitOfWork) ID() uuid.UUID {
	return u.id
}

// Dependencies returns the scope-bound dependency cache.
func (u *UnitOfWork) Dependencies() *DependencyCache {
	return u.dependencies
}

// Events returns the bus collecting events for release after the flush.
func (u *UnitOfWork) Events() *DomainEventBus {
	return u.events
}

// Logger returns the logger of the unit of work.
func (u *UnitOfWork) Logger() *slog.Logger {
	return u.logger
}

// Metrics returns the metrics sink of the unit of work.
func (u *UnitOfWork) Metrics() observability.Metrics {
	return u.metrics
}

// Enlist registers p for the flush. Enlisting the same participant again is a no-op.
func (u *UnitOfWork) Enlist(p Participant) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return fmt.Errorf("%w: enlist into disposed unit of work %s", domain.ErrContractViolation, u.id)
	}
	if u.flushed {
		return fmt.Errorf("%w: enlist into flushed unit of work %s", domain.ErrContractViolation, u.id)
	}
	if _, ok := u.enlisted[p]; ok {
		return nil
	}
	u.enlisted[p] = struct{}{}
	u.participants = append(u.participants, p)
	return nil
}

// Participants returns the enlisted participants in enlistment order.
func (u *UnitOfWork) Participants() []Participant {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]Participant, len(u.participants))
	copy(out, u.participants)
	return out
}

// IsDisposed reports whether the owning scope has torn the unit of work down.
func (u *UnitOfWork) IsDisposed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.disposed
}

// flush writes every participant that requires it, in enlistment order,
// stopping at the first failure. Events are released only when all succeed.
func (u *UnitOfWork) flush(ctx context.Context) error {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return fmt.Errorf("%w: flush of disposed unit of work %s", domain.ErrContractViolation, u.id)
	}
	if u.flushed {
		u.mu.Unlock()
		return fmt.Errorf("%w: unit of work %s already flushed", domain.ErrContractViolation, u.id)
	}
	u.flushed = true
	participants := make([]Participant, len(u.participants))
	copy(participants, u.participants)
	u.mu.Unlock()

	start := time.Now()
	flushed := 0
	for i, p := range participants {
		if !p.RequiresFlush() {
			continue
		}
		if err := p.Flush(ctx); err != nil {
			u.metrics.Counter(observability.MetricUoWFlushFailed, 1)
			u.logger.ErrorContext(ctx, "unit of work flush failed",
				"participant", i,
				"error", err,
			)
			return fmt.Errorf("flush participant %d of %d: %w", i+1, len(participants), err)
		}
		flushed++
	}

	u.metrics.Counter(observability.MetricUoWFlush, 1)
	u.metrics.Timing(observability.MetricUoWFlushDuration, time.Since(start))
	u.logger.DebugContext(ctx, "unit of work flushed",
		"participants", len(participants),
		"flushed", flushed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	released, err := u.events.release(ctx)
	if err != nil {
		return err
	}
	u.metrics.Counter(observability.MetricEventsReleased, int64(released))
	return nil
}

// dispose tears the unit of work down. Unreleased events are dropped.
func (u *UnitOfWork) dispose(ctx context.Context) {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return
	}
	u.disposed = true
	u.mu.Unlock()

	if dropped := u.events.discard(); dropped > 0 {
		u.logger.DebugContext(ctx, "dropped unreleased events",
			"count", dropped,
		)
	}
	if err := u.dependencies.Dispose(); err != nil {
		u.logger.WarnContext(ctx, "error disposing dependencies",
			"error", err,
		)
	}
}

type unitOfWorkKey struct{}

// ContextWithUnitOfWork stores the unit of work in ctx. Records logged with
// the returned context carry its id.
func ContextWithUnitOfWork(ctx context.Context, uow *UnitOfWork) context.Context {
	ctx = observability.WithUnitOfWorkID(ctx, uow.id.String())
	return context.WithValue(ctx, unitOfWorkKey{}, uow)
}

// UnitOfWorkFromContext returns the live unit of work carried by ctx.
// A disposed unit of work is treated as absent.
func UnitOfWorkFromContext(ctx context.Context) (*UnitOfWork, bool) {
	uow, ok := ctx.Value(unitOfWorkKey{}).(*UnitOfWork)
	if !ok || uow == nil || uow.IsDisposed() {
		return nil, false
	}
	return uow, true
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context, uow *UnitOfWork) error

// WithUnitOfWork runs fn inside a scope and completes it when fn succeeds.
// Nested calls join the caller's unit of work and leave the flush to the owner.
func WithUnitOfWork(ctx context.Context, m *Manager, fn UnitOfWorkFunc) error {
	scopeCtx, scope := m.Begin(ctx)
	defer scope.Dispose(scopeCtx)

	if err := fn(scopeCtx, scope.UnitOfWork()); err != nil {
		return err
	}
	return scope.Complete(scopeCtx)
}

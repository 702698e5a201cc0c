package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/pkg/observability"
)

// Manager starts unit-of-work scopes.
type Manager struct {
	sink    EventSink
	logger  *slog.Logger
	metrics observability.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEventSink sets where released events are delivered.
func WithEventSink(sink EventSink) ManagerOption {
	return func(m *Manager) { m.sink = sink }
}

// WithLogger sets the logger handed to every unit of work.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics sink handed to every unit of work.
func WithMetrics(metrics observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a Manager. Without an event sink, released events are dropped.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.metrics == nil {
		m.metrics = observability.NoopMetrics{}
	}
	if m.sink == nil {
		m.sink = DiscardSink{}
	}
	return m
}

// Begin opens a scope. When ctx carries no live unit of work a new one is
// created and the scope owns it; otherwise the scope joins the existing one.
func (m *Manager) Begin(ctx context.Context) (context.Context, *Scope) {
	if uow, ok := UnitOfWorkFromContext(ctx); ok {
		return ctx, &Scope{uow: uow, owner: false}
	}

	uow := newUnitOfWork(ctx, m.sink, m.logger, m.metrics)
	m.logger.DebugContext(ctx, "unit of work started", "unit_of_work_id", uow.id.String())
	return ContextWithUnitOfWork(ctx, uow), &Scope{uow: uow, owner: true}
}

// Scope is one caller's handle on a unit of work.
// A Scope is used by a single goroutine.
type Scope struct {
	uow       *UnitOfWork
	owner     bool
	completed bool
	disposed  bool
}

// UnitOfWork returns the unit of work the scope belongs to.
func (s *Scope) UnitOfWork() *UnitOfWork {
	return s.uow
}

// IsOwner reports whether the scope created the unit of work.
func (s *Scope) IsOwner() bool {
	return s.owner
}

// Complete marks the scope as successful. Only the owner flushes; nested
// scopes return immediately. Completing twice or after Dispose is an error.
func (s *Scope) Complete(ctx context.Context) error {
	if s.disposed {
		return fmt.Errorf("%w: complete after dispose", domain.ErrContractViolation)
	}
	if s.completed {
		return fmt.Errorf("%w: scope completed twice", domain.ErrContractViolation)
	}
	s.completed = true

	if !s.owner {
		return nil
	}
	return s.uow.flush(ctx)
}

// Dispose releases the scope. The owner also disposes the unit of work.
// Dispose is idempotent.
func (s *Scope) Dispose(ctx context.Context) {
	if s.disposed {
		return
	}
	s.disposed = true

	if s.owner {
		s.uow.dispose(ctx)
	}
}

// Package breaker guards a storage backend with a circuit breaker.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// ErrStorageUnavailable is returned while the breaker rejects calls.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Config configures the breaker.
type Config struct {
	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold trips the breaker after this many consecutive failures.
	FailureThreshold uint32
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Storage decorates a persistence.Storage. Domain outcomes such as duplicate
// keys or concurrency conflicts count as successes; only backend failures
// trip the breaker.
type Storage[K comparable] struct {
	next    persistence.Storage[K]
	cb      *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
	metrics observability.Metrics
}

var _ persistence.Storage[string] = (*Storage[string])(nil)

// Wrap returns next guarded by a breaker named name.
func Wrap[K comparable](next persistence.Storage[K], name string, cfg Config, logger *slog.Logger, metrics observability.Metrics) *Storage[K] {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	s := &Storage[K]{next: next, logger: logger, metrics: metrics}
	s.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("storage circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			s.metrics.Gauge(observability.MetricStorageBreakerState, float64(to), observability.T("breaker", name))
		},
	})
	return s
}

// State returns the breaker state.
func (s *Storage[K]) State() gobreaker.State {
	return s.cb.State()
}

// SelectByID calls the wrapped storage unless the breaker is open.
func (s *Storage[K]) SelectByID(ctx context.Context, id K) (*domain.DataSet[K], error) {
	out, err := s.cb.Execute(func() (any, error) {
		return s.next.SelectByID(ctx, id)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	ds, _ := out.(*domain.DataSet[K])
	return ds, nil
}

// Flush calls the wrapped storage unless the breaker is open.
func (s *Storage[K]) Flush(ctx context.Context, changes domain.ChangeSet[K]) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Flush(ctx, changes)
	})
	return s.translate(err)
}

func (s *Storage[K]) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, s.cb.Name(), err)
	}
	return err
}

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, domain.ErrDuplicateKey) ||
		errors.Is(err, domain.ErrConcurrencyConflict) ||
		errors.Is(err, domain.ErrAggregateNotFound) ||
		errors.Is(err, domain.ErrCouldNotRestore)
}

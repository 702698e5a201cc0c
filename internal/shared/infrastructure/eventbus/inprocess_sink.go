package eventbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// InProcessSink delivers released events synchronously to registered
// consumers. It is the local-mode replacement for a broker.
type InProcessSink struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

var _ application.EventSink = (*InProcessSink)(nil)

// NewInProcessSink creates a new in-process sink.
func NewInProcessSink(logger *slog.Logger) *InProcessSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessSink{
		registry: NewConsumerRegistry(logger),
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (s *InProcessSink) RegisterConsumer(consumer EventConsumer) {
	s.registry.Register(consumer)
}

// Registry returns the underlying consumer registry.
func (s *InProcessSink) Registry() *ConsumerRegistry {
	return s.registry
}

// Deliver dispatches every envelope in order. The data is already committed
// when events are released, so consumer failures are logged, not returned.
func (s *InProcessSink) Deliver(ctx context.Context, envelopes []domain.Envelope) error {
	for _, env := range envelopes {
		msg, err := NewMessage(env)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := s.registry.Dispatch(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "event dispatch failed",
				"routing_key", msg.RoutingKey,
				"event_id", msg.EventID,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			continue
		}

		s.logger.DebugContext(ctx, "event dispatched",
			"routing_key", msg.RoutingKey,
			"event_id", msg.EventID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return nil
}

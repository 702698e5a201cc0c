package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// BrokerSink forwards released events to a message broker, routed by schema name.
type BrokerSink struct {
	publisher Publisher
	logger    *slog.Logger
}

var _ application.EventSink = (*BrokerSink)(nil)

// NewBrokerSink creates a sink publishing through publisher.
func NewBrokerSink(publisher Publisher, logger *slog.Logger) *BrokerSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrokerSink{publisher: publisher, logger: logger}
}

// Deliver publishes the envelopes in order and stops at the first failure.
func (s *BrokerSink) Deliver(ctx context.Context, envelopes []domain.Envelope) error {
	for i, env := range envelopes {
		msg, err := NewMessage(env)
		if err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish event",
				"routing_key", msg.RoutingKey,
				"event_id", msg.EventID,
				"published", i,
				"remaining", len(envelopes)-i,
				"error", err,
			)
			return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
		}
	}
	return nil
}

// Close closes the underlying publisher.
func (s *BrokerSink) Close() error {
	return s.publisher.Close()
}

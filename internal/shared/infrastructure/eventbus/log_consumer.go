package eventbus

import (
	"context"
	"log/slog"
)

// LogConsumer logs every message it receives.
type LogConsumer struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogConsumer creates a consumer logging at level.
func NewLogConsumer(logger *slog.Logger, level slog.Level) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger, level: level}
}

// EventTypes subscribes to every event.
func (c *LogConsumer) EventTypes() []string {
	return []string{AllEvents}
}

// Handle logs msg.
func (c *LogConsumer) Handle(ctx context.Context, msg *Message) error {
	c.logger.Log(ctx, c.level, "event released",
		"routing_key", msg.RoutingKey,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"version", msg.Version,
		"event_id", msg.EventID,
		"correlation_id", msg.Metadata.CorrelationID,
	)
	return nil
}

package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the default topic exchange for released domain events.
	ExchangeName = "keystone.domain.events"
)

// RabbitMQPublisher publishes events to RabbitMQ.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher connects to url and declares exchange as a durable topic exchange.
// An empty exchange selects ExchangeName.
func NewRabbitMQPublisher(url, exchange string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if exchange == "" {
		exchange = ExchangeName
	}

	conn, ch, err := dialTopic(url, exchange)
	if err != nil {
		return nil, err
	}

	logger.Info("RabbitMQ publisher connected",
		"exchange", exchange,
	)

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends msg as a persistent JSON message. The AMQP message id is
// the event id, so consumers can drop redelivered duplicates.
func (p *RabbitMQPublisher) Publish(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message %s: %w", msg.EventID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, msg.RoutingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.EventID.String(),
		CorrelationId: msg.Metadata.CorrelationID,
		Timestamp:     msg.OccurredAt,
		Type:          msg.RoutingKey,
		AppId:         "keystone",
		Body:          body,
	})
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "message published",
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		"size", len(body),
	)
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *RabbitMQPublisher) Ping(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close closes the publisher connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := hangUp(p.conn, p.channel, p.logger); err != nil {
		return err
	}
	p.logger.Info("RabbitMQ publisher closed")
	return nil
}

// NoopPublisher drops every message. It backs EVENT_SINK=noop.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

// Publish logs msg and drops it.
func (p *NoopPublisher) Publish(ctx context.Context, msg *Message) error {
	p.logger.DebugContext(ctx, "noop publish",
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
	)
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}

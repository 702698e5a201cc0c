package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrConsumerRunning is returned by Start on a consumer that is already consuming.
	ErrConsumerRunning = errors.New("consumer already running")

	// ErrDeliveriesClosed is returned by Start when the broker closes the delivery channel.
	ErrDeliveriesClosed = errors.New("delivery channel closed")

	errMalformed = errors.New("malformed message")
)

// Disposition is what the consumer tells the broker about a delivery.
type Disposition int

const (
	// Ack removes the delivery from the queue.
	Ack Disposition = iota
	// Requeue returns the delivery to the queue for another attempt.
	Requeue
	// Drop rejects the delivery without requeueing it.
	Drop
)

// Dispose maps the outcome of handling a delivery to its disposition.
// Malformed messages and failures of an already redelivered message are
// dropped so a poison message cannot loop forever.
func Dispose(err error, redelivered bool) Disposition {
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, errMalformed), redelivered:
		return Drop
	default:
		return Requeue
	}
}

// RabbitMQConsumerConfig configures a RabbitMQConsumer.
type RabbitMQConsumerConfig struct {
	URL      string
	Exchange string

	// QueueName names a durable queue. Empty declares an exclusive,
	// server-named queue that is deleted with the connection.
	QueueName string

	// Prefetch bounds unacknowledged deliveries. Zero means one.
	Prefetch int

	Logger *slog.Logger
}

// RabbitMQConsumer feeds messages from a queue bound to the event exchange
// into a ConsumerRegistry.
type RabbitMQConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	exchange string
	prefetch int
	registry *ConsumerRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	once    sync.Once
}

// NewRabbitMQConsumer connects to the broker and declares the queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if registry == nil {
		registry = NewConsumerRegistry(cfg.Logger)
	}

	conn, ch, err := dialTopic(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}

	transient := cfg.QueueName == ""
	q, err := ch.QueueDeclare(cfg.QueueName, !transient, transient, transient, false, nil)
	if err != nil {
		_ = hangUp(conn, ch, cfg.Logger)
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger := cfg.Logger.With("queue", q.Name, "exchange", cfg.Exchange)
	logger.Info("RabbitMQ consumer connected", "transient", transient)

	return &RabbitMQConsumer{
		conn:     conn,
		channel:  ch,
		queue:    q.Name,
		exchange: cfg.Exchange,
		prefetch: cfg.Prefetch,
		registry: registry,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

// Queue returns the name of the consumed queue.
func (c *RabbitMQConsumer) Queue() string {
	return c.queue
}

// Exchange returns the exchange the queue is bound to.
func (c *RabbitMQConsumer) Exchange() string {
	return c.exchange
}

// Subscribe registers consumer and binds the queue to each of its event types.
func (c *RabbitMQConsumer) Subscribe(consumer EventConsumer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, routingKey := range consumer.EventTypes() {
		if err := c.channel.QueueBind(c.queue, routingKey, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s: %w", routingKey, err)
		}
		c.logger.Debug("bound queue", "routing_key", routingKey)
	}
	c.registry.Register(consumer)
	return nil
}

// Start consumes until ctx is cancelled or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrConsumerRunning
	}
	c.running = true
	c.mu.Unlock()

	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.logger.Info("consuming events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.settle(d, c.handle(ctx, d))
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) error {
	msg := &Message{}
	if err := json.Unmarshal(d.Body, msg); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if msg.RoutingKey == "" {
		msg.RoutingKey = d.RoutingKey
	}

	start := time.Now()
	err := c.registry.Dispatch(ctx, msg)
	c.logger.DebugContext(ctx, "message dispatched",
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	return err
}

func (c *RabbitMQConsumer) settle(d amqp.Delivery, err error) {
	var settleErr error
	switch Dispose(err, d.Redelivered) {
	case Ack:
		settleErr = d.Ack(false)
	case Requeue:
		c.logger.Warn("requeueing message", "routing_key", d.RoutingKey, "error", err)
		settleErr = d.Nack(false, true)
	case Drop:
		c.logger.Error("dropping message",
			"routing_key", d.RoutingKey,
			"redelivered", d.Redelivered,
			"error", err,
		)
		settleErr = d.Reject(false)
	}
	if settleErr != nil {
		c.logger.Error("failed to settle delivery", "routing_key", d.RoutingKey, "error", settleErr)
	}
}

// Close stops Start and closes the connection.
func (c *RabbitMQConsumer) Close() error {
	c.once.Do(func() { close(c.stop) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return hangUp(c.conn, c.channel, c.logger)
}

package eventbus

import "context"

// Publisher sends released events to a message broker.
type Publisher interface {
	// Publish sends msg to the exchange under msg.RoutingKey.
	Publish(ctx context.Context, msg *Message) error

	Close() error
}

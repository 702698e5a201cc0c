package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// ConsumerRegistry routes messages to consumers by routing key. Event types
// are AMQP topic patterns: "*" matches one dot-separated word and "#" matches
// zero or more, so in-process delivery selects the same consumers a broker
// binding would.
type ConsumerRegistry struct {
	mu            sync.RWMutex
	registrations []registration
	logger        *slog.Logger
}

type registration struct {
	patterns []string
	consumer EventConsumer
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{logger: logger}
}

// Register adds consumer for the patterns returned by its EventTypes.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	patterns := consumer.EventTypes()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, registration{patterns: patterns, consumer: consumer})
	r.logger.Debug("registered consumer", "patterns", patterns)
}

// Consumers returns, in registration order, every consumer with a pattern
// matching routingKey. A consumer matching through several patterns is
// returned once.
func (r *ConsumerRegistry) Consumers(routingKey string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []EventConsumer
	for _, reg := range r.registrations {
		for _, p := range reg.patterns {
			if MatchTopic(p, routingKey) {
				out = append(out, reg.consumer)
				break
			}
		}
	}
	return out
}

// Dispatch hands msg to every matching consumer. All of them run even when
// one fails; their errors are joined.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, msg *Message) error {
	consumers := r.Consumers(msg.RoutingKey)
	if len(consumers) == 0 {
		r.logger.DebugContext(ctx, "no consumers for routing key", "routing_key", msg.RoutingKey)
		return nil
	}

	var errs []error
	for _, consumer := range consumers {
		if err := consumer.Handle(ctx, msg); err != nil {
			r.logger.ErrorContext(ctx, "consumer failed to handle event",
				"routing_key", msg.RoutingKey,
				"event_id", msg.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MatchTopic reports whether routingKey matches the AMQP topic pattern.
func MatchTopic(pattern, routingKey string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchWords(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}

package domain

import (
	"errors"
	"strings"

	sharedDomain "github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// AggregateType is the stream type of numbers.
const AggregateType = "number"

var (
	ErrNumberEmptyID   = errors.New("number id cannot be empty")
	ErrNumberZeroValue = errors.New("value to add cannot be zero")
	ErrNumberDeleted   = errors.New("number is deleted")
)

// Number is a running total built from the values added to it.
type Number struct {
	sharedDomain.BaseAggregateRoot[string]
	value     int
	additions int
}

var _ sharedDomain.AggregateRoot[string] = (*Number)(nil)

// Repository is the unit-of-work scoped port for numbers.
type Repository = sharedDomain.Repository[string, *Number]

var handlers = func() *sharedDomain.EventHandlers[*Number] {
	h := sharedDomain.NewEventHandlers[*Number](AggregateType)
	sharedDomain.Handle(h, func(n *Number, e NumberCreated) {
		n.value = e.Value
	})
	sharedDomain.Handle(h, func(n *Number, e ValueAdded) {
		n.value += e.Value
		n.additions++
	})
	return h
}()

// NewNumber creates a number starting at initial. It is at version 1.
func NewNumber(id string, initial int) (*Number, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNumberEmptyID
	}

	n := &Number{BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(AggregateType, id)}
	if err := sharedDomain.Raise(n, handlers, NumberCreated{Value: initial}); err != nil {
		return nil, err
	}
	return n, nil
}

// Empty returns a number with no state, for event replay.
func Empty() *Number {
	return &Number{BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot[string](AggregateType)}
}

// Getters
func (n *Number) ID() string     { return n.AggregateID() }
func (n *Number) Value() int     { return n.value }
func (n *Number) Additions() int { return n.additions }

// Add adds v to the number and records a ValueAdded event.
func (n *Number) Add(v int) error {
	if n.IsDeleted() {
		return ErrNumberDeleted
	}
	if v == 0 {
		return ErrNumberZeroValue
	}
	return sharedDomain.Raise(n, handlers, ValueAdded{Value: v})
}

// Apply replays a persisted event.
func (n *Number) Apply(e sharedDomain.Event) error {
	return handlers.Apply(n, e)
}

// TakeSnapshot captures the current state.
func (n *Number) TakeSnapshot() (sharedDomain.Snapshot, error) {
	return NumberSnapshot{Value: n.value, Additions: n.additions}, nil
}

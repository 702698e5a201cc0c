package domain

import "fmt"

// EventHandlers is the dispatch table of one aggregate type, keyed by event schema name.
// Tables are built once at package init and are read-only afterwards.
type EventHandlers[A any] struct {
	aggregateType string
	handlers      map[string]func(A, Event) error
}

// NewEventHandlers creates an empty dispatch table.
func NewEventHandlers[A any](aggregateType string) *EventHandlers[A] {
	return &EventHandlers[A]{
		aggregateType: aggregateType,
		handlers:      make(map[string]func(A, Event) error),
	}
}

// Handle registers fn for events of type E, which must be a value type.
// Registering a second handler for the same event panics.
func Handle[A any, E Event](h *EventHandlers[A], fn func(A, E)) *EventHandlers[A] {
	var zero E
	name := zero.SchemaName()
	if _, exists := h.handlers[name]; exists {
		panic(fmt.Errorf("%w: %s already has a handler for %s", ErrContractViolation, h.aggregateType, name))
	}

	h.handlers[name] = func(a A, e Event) error {
		typed, ok := e.(E)
		if !ok {
			return fmt.Errorf("%w: %s registered for %T, got %T", ErrUnhandledEvent, name, zero, e)
		}
		fn(a, typed)
		return nil
	}
	return h
}

// Apply dispatches e to its handler.
func (h *EventHandlers[A]) Apply(a A, e Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil event on %s", ErrUnhandledEvent, h.aggregateType)
	}
	handler, ok := h.handlers[e.SchemaName()]
	if !ok {
		return fmt.Errorf("%w: %s has no handler for %s", ErrUnhandledEvent, h.aggregateType, e.SchemaName())
	}
	return handler(a, e)
}

// Handles reports whether a handler is registered for the schema name.
func (h *EventHandlers[A]) Handles(schemaName string) bool {
	_, ok := h.handlers[schemaName]
	return ok
}

package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Registry maps schema names to payload types so blobs can be decoded again.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]func([]byte) (Schema, error)
}

// NewRegistry creates a registry that already knows the tombstone schema.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]func([]byte) (Schema, error))}
	Register[Tombstone](r)
	return r
}

// Register makes T decodable under its schema name. T must be a value type.
// Registering the same schema name twice panics.
func Register[T Schema](r *Registry) {
	var zero T
	name := zero.SchemaName()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[name]; exists {
		panic(fmt.Errorf("%w: schema %s registered twice", ErrContractViolation, name))
	}
	r.decoders[name] = func(data []byte) (Schema, error) {
		var v T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// Encode serializes s and returns its schema name.
func (r *Registry) Encode(s Schema) (string, []byte, error) {
	if s == nil {
		return "", nil, fmt.Errorf("%w: cannot encode nil payload", ErrContractViolation)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s: %w", s.SchemaName(), err)
	}
	return s.SchemaName(), data, nil
}

// Decode rebuilds a payload from its schema name and blob.
func (r *Registry) Decode(name string, data []byte) (Schema, error) {
	r.mu.RLock()
	decode, ok := r.decoders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown schema %q", ErrCouldNotRestore, name)
	}

	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCouldNotRestore, name, err)
	}
	return s, nil
}

// Schemas returns the registered schema names in sorted order.
func (r *Registry) Schemas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package application

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// DependencyCache holds objects that live exactly as long as one unit of work.
// Cached values implementing io.Closer are closed on Dispose, newest first.
type DependencyCache struct {
	mu       sync.Mutex
	items    map[any]any
	order    []any
	disposed bool
}

// NewDependencyCache creates an empty cache.
func NewDependencyCache() *DependencyCache {
	return &DependencyCache{items: make(map[any]any)}
}

// Resolve returns the value cached under key, creating it on first use.
func Resolve[T any](c *DependencyCache, key any, create func() (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return zero, fmt.Errorf("%w: resolve %v from disposed dependency cache", domain.ErrContractViolation, key)
	}
	if existing, ok := c.items[key]; ok {
		typed, ok := existing.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %v cached as %T, requested %T", domain.ErrContractViolation, key, existing, zero)
		}
		return typed, nil
	}

	value, err := create()
	if err != nil {
		return zero, err
	}
	c.items[key] = value
	c.order = append(c.order, key)
	return value, nil
}

// Len returns the number of cached values.
func (c *DependencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dispose closes cached values and empties the cache. It runs once.
func (c *DependencyCache) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	items, order := c.items, c.order
	c.items, c.order = nil, nil
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if closer, ok := items[order[i]].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %v: %w", order[i], err))
			}
		}
	}
	return errors.Join(errs...)
}

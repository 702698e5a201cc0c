package domain

import "context"

// Repository is the caller-facing port over aggregates of one type within a unit of work.
type Repository[K comparable, A AggregateRoot[K]] interface {
	// GetByIDOrNil returns the aggregate, or the zero value when it is absent.
	GetByIDOrNil(ctx context.Context, id K) (A, error)
	// GetByID returns the aggregate or an error wrapping ErrAggregateNotFound.
	GetByID(ctx context.Context, id K) (A, error)
	// Add starts tracking a new aggregate. It returns false when the instance is already tracked.
	Add(ctx context.Context, aggregate A) (bool, error)
	// Remove marks a tracked aggregate for removal. It returns false when there is nothing to remove.
	Remove(ctx context.Context, aggregate A) (bool, error)
	// RemoveByID loads and removes the aggregate with the given id.
	RemoveByID(ctx context.Context, id K) (bool, error)
}

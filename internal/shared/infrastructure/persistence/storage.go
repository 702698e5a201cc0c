package persistence

import (
	"context"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// Storage is the persistence boundary of a Repository.
type Storage[K comparable] interface {
	// SelectByID returns the data set of id, or nil when nothing is stored.
	SelectByID(ctx context.Context, id K) (*domain.DataSet[K], error)
	// Flush applies the change set atomically. Inserts of known ids fail with
	// domain.ErrDuplicateKey and updates whose ExpectedVersion no longer
	// matches fail with domain.ErrConcurrencyConflict.
	Flush(ctx context.Context, changes domain.ChangeSet[K]) error
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAggregateNotFound is returned when an aggregate is absent from storage and the cache.
	ErrAggregateNotFound = errors.New("aggregate not found")
	// ErrDuplicateKey is returned when an aggregate id is already in use.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrCouldNotRestore is returned when a persisted data set cannot be turned back into an aggregate.
	ErrCouldNotRestore = errors.New("could not restore aggregate")
	// ErrContractViolation marks misuse of the persistence API by the caller.
	ErrContractViolation = errors.New("contract violation")
	// ErrConcurrencyConflict is returned by storage when the persisted version moved on.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrAggregateDeleted is returned when the newest persisted record is a tombstone.
	ErrAggregateDeleted = errors.New("aggregate deleted")
	// ErrUnhandledEvent is returned when an aggregate has no handler for an event.
	ErrUnhandledEvent = errors.New("unhandled event")
)

// AggregateError describes a failed repository operation on a single aggregate.
type AggregateError struct {
	Op            string
	AggregateType string
	ID            any
	Err           error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("%s %s %v: %v", e.Op, e.AggregateType, e.ID, e.Err)
}

func (e *AggregateError) Unwrap() error {
	return e.Err
}

// NewAggregateError wraps err with the operation and aggregate it concerns.
func NewAggregateError(op, aggregateType string, id any, err error) *AggregateError {
	return &AggregateError{Op: op, AggregateType: aggregateType, ID: id, Err: err}
}

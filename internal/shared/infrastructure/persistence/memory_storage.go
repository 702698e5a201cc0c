package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

type memoryStream[K comparable] struct {
	version  domain.Version
	snapshot *domain.Record[K]
	events   []domain.Record[K]
}

// MemoryStorage keeps data sets in process memory. It is used in tests and
// when no durable backend is configured.
type MemoryStorage[K comparable] struct {
	mu      sync.RWMutex
	streams map[K]*memoryStream[K]
	flushes int
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage[K comparable]() *MemoryStorage[K] {
	return &MemoryStorage[K]{streams: make(map[K]*memoryStream[K])}
}

// SelectByID returns a copy of the stored data set.
func (s *MemoryStorage[K]) SelectByID(_ context.Context, id K) (*domain.DataSet[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream, ok := s.streams[id]
	if !ok {
		return nil, nil
	}

	ds := &domain.DataSet[K]{
		AggregateID:     id,
		ExpectedVersion: stream.version,
		Events:          append([]domain.Record[K](nil), stream.events...),
	}
	if stream.snapshot != nil {
		snap := *stream.snapshot
		ds.Snapshot = &snap
	}
	return ds, nil
}

// Flush validates the whole change set before applying any of it.
func (s *MemoryStorage[K]) Flush(_ context.Context, changes domain.ChangeSet[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserting := make(map[K]struct{}, len(changes.Inserts))
	for _, ds := range changes.Inserts {
		if _, exists := s.streams[ds.AggregateID]; exists {
			return fmt.Errorf("insert %v: %w", ds.AggregateID, domain.ErrDuplicateKey)
		}
		if _, twice := inserting[ds.AggregateID]; twice {
			return fmt.Errorf("insert %v: %w", ds.AggregateID, domain.ErrDuplicateKey)
		}
		inserting[ds.AggregateID] = struct{}{}
	}
	for _, ds := range changes.Updates {
		stream, exists := s.streams[ds.AggregateID]
		if !exists {
			return fmt.Errorf("update %v: %w", ds.AggregateID, domain.ErrAggregateNotFound)
		}
		if stream.version != ds.ExpectedVersion {
			return fmt.Errorf("update %v at version %d, stored %d: %w",
				ds.AggregateID, ds.ExpectedVersion, stream.version, domain.ErrConcurrencyConflict)
		}
	}

	for _, ds := range changes.Inserts {
		stream := &memoryStream[K]{}
		apply(stream, ds)
		s.streams[ds.AggregateID] = stream
	}
	for _, ds := range changes.Updates {
		apply(s.streams[ds.AggregateID], ds)
	}
	for _, id := range changes.Deletes {
		delete(s.streams, id)
	}
	s.flushes++
	return nil
}

// Len returns the number of stored aggregates.
func (s *MemoryStorage[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams)
}

// Flushes returns how many change sets were applied.
func (s *MemoryStorage[K]) Flushes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushes
}

func apply[K comparable](stream *memoryStream[K], ds domain.DataSet[K]) {
	if ds.Snapshot != nil {
		snap := *ds.Snapshot
		stream.snapshot = &snap
	}
	stream.events = append(stream.events, ds.Events...)
	if v := ds.LatestVersion(); v > stream.version {
		stream.version = v
	}
}

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "keystone"

// Storage keeps each aggregate in three keys:
//
//	{<prefix>:<type>}:<id>:version   current version
//	{<prefix>:<type>}:<id>:snapshot  latest snapshot record (JSON)
//	{<prefix>:<type>}:<id>:events    list of event records (JSON)
//
// Flush watches the version keys it touches and commits in one MULTI/EXEC.
// The hash tag puts every key of one aggregate type in the same cluster slot,
// which a change set spanning several aggregates needs.
type Storage[K comparable] struct {
	client        redis.UniversalClient
	prefix        string
	aggregateType string
	codec         persistence.RecordCodec[K]
	logger        *slog.Logger
}

var _ persistence.Storage[string] = (*Storage[string])(nil)

// New creates a Storage for aggregateType.
func New[K comparable](
	client redis.UniversalClient,
	prefix string,
	aggregateType string,
	codec persistence.RecordCodec[K],
	logger *slog.Logger,
) *Storage[K] {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage[K]{
		client:        client,
		prefix:        prefix,
		aggregateType: aggregateType,
		codec:         codec,
		logger:        logger.With("aggregate_type", aggregateType, "backend", "redis"),
	}
}

// HashTag returns the cluster hash tag shared by every key of the aggregate type.
func (s *Storage[K]) HashTag() string {
	return "{" + s.prefix + ":" + s.aggregateType + "}"
}

// Keys returns the keys holding the aggregate with id.
func (s *Storage[K]) Keys(id K) (version, snapshot, events string) {
	base := fmt.Sprintf("%s:%s", s.HashTag(), s.codec.Keys.EncodeKey(id))
	return base + ":version", base + ":snapshot", base + ":events"
}

// SelectByID loads the stream of id. Events older than the stored snapshot are dropped.
func (s *Storage[K]) SelectByID(ctx context.Context, id K) (*domain.DataSet[K], error) {
	versionKey, snapshotKey, eventsKey := s.Keys(id)

	var versionCmd, snapshotCmd *redis.StringCmd
	var eventsCmd *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		versionCmd = pipe.Get(ctx, versionKey)
		snapshotCmd = pipe.Get(ctx, snapshotKey)
		eventsCmd = pipe.LRange(ctx, eventsKey, 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("select %v: %w", id, err)
	}

	version, err := versionCmd.Uint64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read version of %v: %w", id, err)
	}

	ds := &domain.DataSet[K]{AggregateID: id, ExpectedVersion: domain.Version(version)}

	var after domain.Version
	if raw, err := snapshotCmd.Bytes(); err == nil {
		rec, err := s.decode(raw)
		if err != nil {
			return nil, err
		}
		ds.Snapshot = &rec
		after = rec.Version
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read snapshot of %v: %w", id, err)
	}

	for _, raw := range eventsCmd.Val() {
		rec, err := s.decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		if rec.Version > after {
			ds.Events = append(ds.Events, rec)
		}
	}
	return ds, nil
}

// Flush applies the change set atomically. A concurrent write to any touched
// aggregate aborts the transaction with domain.ErrConcurrencyConflict.
func (s *Storage[K]) Flush(ctx context.Context, changes domain.ChangeSet[K]) error {
	if changes.IsEmpty() {
		return nil
	}

	var watched []string
	for _, ds := range changes.Inserts {
		v, _, _ := s.Keys(ds.AggregateID)
		watched = append(watched, v)
	}
	for _, ds := range changes.Updates {
		v, _, _ := s.Keys(ds.AggregateID)
		watched = append(watched, v)
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := s.validate(ctx, tx, changes); err != nil {
			return err
		}

		writes, err := s.encodeWrites(changes)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				pipe.Set(ctx, w.versionKey, strconv.FormatUint(w.version, 10), 0)
				if w.snapshot != nil {
					pipe.Set(ctx, w.snapshotKey, w.snapshot, 0)
				}
				if len(w.events) > 0 {
					pipe.RPush(ctx, w.eventsKey, w.events...)
				}
			}
			for _, id := range changes.Deletes {
				v, snap, events := s.Keys(id)
				pipe.Del(ctx, v, snap, events)
			}
			return nil
		})
		return err
	}, watched...)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("flush %s: %w", s.aggregateType, domain.ErrConcurrencyConflict)
	}
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "change set written",
		"inserts", len(changes.Inserts),
		"updates", len(changes.Updates),
		"deletes", len(changes.Deletes),
	)
	return nil
}

func (s *Storage[K]) validate(ctx context.Context, tx *redis.Tx, changes domain.ChangeSet[K]) error {
	for _, ds := range changes.Inserts {
		v, _, _ := s.Keys(ds.AggregateID)
		n, err := tx.Exists(ctx, v).Result()
		if err != nil {
			return fmt.Errorf("check %v: %w", ds.AggregateID, err)
		}
		if n > 0 {
			return fmt.Errorf("insert %v: %w", ds.AggregateID, domain.ErrDuplicateKey)
		}
	}

	for _, ds := range changes.Updates {
		v, _, _ := s.Keys(ds.AggregateID)
		stored, err := tx.Get(ctx, v).Uint64()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("update %v: %w", ds.AggregateID, domain.ErrAggregateNotFound)
		}
		if err != nil {
			return fmt.Errorf("check %v: %w", ds.AggregateID, err)
		}
		if domain.Version(stored) != ds.ExpectedVersion {
			return fmt.Errorf("update %v at version %d, stored %d: %w",
				ds.AggregateID, ds.ExpectedVersion, stored, domain.ErrConcurrencyConflict)
		}
	}
	return nil
}

type write struct {
	versionKey, snapshotKey, eventsKey string
	version                            uint64
	snapshot                           []byte
	events                             []any
}

func (s *Storage[K]) encodeWrites(changes domain.ChangeSet[K]) ([]write, error) {
	all := make([]domain.DataSet[K], 0, len(changes.Inserts)+len(changes.Updates))
	all = append(all, changes.Inserts...)
	all = append(all, changes.Updates...)

	writes := make([]write, 0, len(all))
	for _, ds := range all {
		w := write{version: uint64(ds.LatestVersion())}
		w.versionKey, w.snapshotKey, w.eventsKey = s.Keys(ds.AggregateID)

		if ds.Snapshot != nil {
			raw, err := s.encode(*ds.Snapshot)
			if err != nil {
				return nil, err
			}
			w.snapshot = raw
		}
		for _, rec := range ds.Events {
			raw, err := s.encode(rec)
			if err != nil {
				return nil, err
			}
			w.events = append(w.events, raw)
		}
		writes = append(writes, w)
	}
	return writes, nil
}

func (s *Storage[K]) encode(rec domain.Record[K]) ([]byte, error) {
	sr, err := s.codec.Encode(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sr)
}

func (s *Storage[K]) decode(raw []byte) (domain.Record[K], error) {
	var sr persistence.StoredRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return domain.Record[K]{}, fmt.Errorf("%w: stored record: %v", domain.ErrCouldNotRestore, err)
	}
	return s.codec.Decode(sr)
}

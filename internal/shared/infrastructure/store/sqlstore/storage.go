package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
)

// Storage persists the data sets of one aggregate type in three tables:
// a stream row holding the current version, the latest snapshot and the
// appended events. Each change set is written in a single transaction.
type Storage[K comparable] struct {
	conn          database.Connection
	transactor    *database.Transactor
	codec         persistence.RecordCodec[K]
	aggregateType string
	logger        *slog.Logger
	q             queries
}

var _ persistence.Storage[string] = (*Storage[string])(nil)

// New creates a Storage for aggregateType.
func New[K comparable](
	conn database.Connection,
	tables migrations.Tables,
	aggregateType string,
	codec persistence.RecordCodec[K],
	logger *slog.Logger,
) *Storage[K] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage[K]{
		conn:          conn,
		transactor:    database.NewTransactor(conn),
		codec:         codec,
		aggregateType: aggregateType,
		logger:        logger.With("aggregate_type", aggregateType, "driver", conn.Driver().String()),
		q:             buildQueries(conn.Driver(), tables),
	}
}

// SelectByID loads the stream of id in one transaction, joining one carried
// by ctx. Events older than the stored snapshot are not read.
func (s *Storage[K]) SelectByID(ctx context.Context, id K) (*domain.DataSet[K], error) {
	var ds *domain.DataSet[K]
	err := s.transactor.InTx(ctx, func(ctx context.Context) error {
		var err error
		ds, err = s.selectByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Storage[K]) selectByID(ctx context.Context, id K) (*domain.DataSet[K], error) {
	exec := database.ExecutorFromContext(ctx, s.conn)
	key := s.codec.Keys.EncodeKey(id)

	var version int64
	if err := exec.QueryRow(ctx, s.q.lockStream, s.aggregateType, key).Scan(&version); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select stream: %w", err)
	}

	expected, err := fromColumn(version)
	if err != nil {
		return nil, err
	}
	ds := &domain.DataSet[K]{AggregateID: id, ExpectedVersion: domain.Version(expected)}

	snap, err := s.selectSnapshot(ctx, exec, key)
	if err != nil {
		return nil, err
	}
	var after int64
	if snap != nil {
		ds.Snapshot = snap
		if after, err = toColumn(snap.Version); err != nil {
			return nil, err
		}
	}

	rows, err := exec.Query(ctx, s.q.selectEvents, s.aggregateType, key, after)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sr := persistence.StoredRecord{AggregateID: key, Kind: domain.KindEvent.String()}
		var v int64
		var payload string
		if err := rows.Scan(&v, &sr.EventID, &sr.Schema, &payload, &sr.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if sr.Version, err = fromColumn(v); err != nil {
			return nil, err
		}
		sr.Data = []byte(payload)

		rec, err := s.codec.Decode(sr)
		if err != nil {
			return nil, err
		}
		ds.Events = append(ds.Events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return ds, nil
}

func (s *Storage[K]) selectSnapshot(ctx context.Context, exec database.Executor, key string) (*domain.Record[K], error) {
	sr := persistence.StoredRecord{AggregateID: key, Kind: domain.KindSnapshot.String()}
	var v int64
	var payload string
	err := exec.QueryRow(ctx, s.q.selectSnapshot, s.aggregateType, key).Scan(&v, &sr.Schema, &payload, &sr.RecordedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	if sr.Version, err = fromColumn(v); err != nil {
		return nil, err
	}
	sr.Data = []byte(payload)

	rec, err := s.codec.Decode(sr)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Flush applies the change set in one transaction. A transaction already
// carried by ctx is joined.
func (s *Storage[K]) Flush(ctx context.Context, changes domain.ChangeSet[K]) error {
	if changes.IsEmpty() {
		return nil
	}

	err := s.transactor.InTx(ctx, func(ctx context.Context) error {
		exec := database.ExecutorFromContext(ctx, s.conn)
		now := time.Now().UTC()

		for _, ds := range changes.Inserts {
			if err := s.insert(ctx, exec, ds, now); err != nil {
				return err
			}
		}
		for _, ds := range changes.Updates {
			if err := s.update(ctx, exec, ds, now); err != nil {
				return err
			}
		}
		for _, id := range changes.Deletes {
			if err := s.delete(ctx, exec, id); err != nil {
				return err
			}
		}
		return nil
	})
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

func (s *Storage[K]) insert(ctx context.Context, exec database.Executor, ds domain.DataSet[K], now time.Time) error {
	key := s.codec.Keys.EncodeKey(ds.AggregateID)
	latest, err := toColumn(ds.LatestVersion())
	if err != nil {
		return err
	}
	if _, err := exec.Exec(ctx, s.q.insertStream, s.aggregateType, key, latest, now); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert %v: %w", ds.AggregateID, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("insert stream %v: %w", ds.AggregateID, err)
	}
	return s.writeRecords(ctx, exec, key, ds)
}

func (s *Storage[K]) update(ctx context.Context, exec database.Executor, ds domain.DataSet[K], now time.Time) error {
	key := s.codec.Keys.EncodeKey(ds.AggregateID)
	latest, err := toColumn(ds.LatestVersion())
	if err != nil {
		return err
	}
	expected, err := toColumn(ds.ExpectedVersion)
	if err != nil {
		return err
	}
	res, err := exec.Exec(ctx, s.q.updateStream, latest, now, s.aggregateType, key, expected)
	if err != nil {
		return fmt.Errorf("update stream %v: %w", ds.AggregateID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stream %v: %w", ds.AggregateID, err)
	}
	if n == 0 {
		var stored int64
		err := exec.QueryRow(ctx, s.q.selectStream, s.aggregateType, key).Scan(&stored)
		if database.IsNoRows(err) {
			return fmt.Errorf("update %v: %w", ds.AggregateID, domain.ErrAggregateNotFound)
		}
		if err != nil {
			return fmt.Errorf("select stream: %w", err)
		}
		return fmt.Errorf("update %v at version %d, stored %d: %w",
			ds.AggregateID, ds.ExpectedVersion, stored, domain.ErrConcurrencyConflict)
	}
	return s.writeRecords(ctx, exec, key, ds)
}

func (s *Storage[K]) delete(ctx context.Context, exec database.Executor, id K) error {
	key := s.codec.Keys.EncodeKey(id)
	for _, q := range []string{s.q.deleteEvents, s.q.deleteSnapshot, s.q.deleteStream} {
		if _, err := exec.Exec(ctx, q, s.aggregateType, key); err != nil {
			return fmt.Errorf("delete %v: %w", id, err)
		}
	}
	return nil
}

func (s *Storage[K]) writeRecords(ctx context.Context, exec database.Executor, key string, ds domain.DataSet[K]) error {
	if ds.Snapshot != nil {
		sr, err := s.codec.Encode(*ds.Snapshot)
		if err != nil {
			return err
		}
		v, err := toColumn(domain.Version(sr.Version))
		if err != nil {
			return err
		}
		if _, err := exec.Exec(ctx, s.q.upsertSnapshot,
			s.aggregateType, key, v, sr.Schema, string(sr.Data), sr.RecordedAt,
		); err != nil {
			return fmt.Errorf("write snapshot %v: %w", ds.AggregateID, err)
		}
	}

	for _, rec := range ds.Events {
		sr, err := s.codec.Encode(rec)
		if err != nil {
			return err
		}
		v, err := toColumn(domain.Version(sr.Version))
		if err != nil {
			return err
		}
		if _, err := exec.Exec(ctx, s.q.insertEvent,
			s.aggregateType, key, v, sr.EventID, sr.Schema, string(sr.Data), sr.RecordedAt,
		); err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("append %v at version %d: %w", ds.AggregateID, sr.Version, domain.ErrConcurrencyConflict)
			}
			return fmt.Errorf("append event %v: %w", ds.AggregateID, err)
		}
	}
	return nil
}

func toColumn(v domain.Version) (int64, error) {
	n, err := convert.Uint64ToInt64(uint64(v))
	if err != nil {
		return 0, fmt.Errorf("%w: version %d: %v", domain.ErrContractViolation, v, err)
	}
	return n, nil
}

func fromColumn(v int64) (uint64, error) {
	n, err := convert.Int64ToUint64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: stored version: %v", domain.ErrCouldNotRestore, err)
	}
	return n, nil
}

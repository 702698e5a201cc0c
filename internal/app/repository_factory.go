package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/store/breaker"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/store/redisstore"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/store/sqlstore"
	"github.com/felixgeelhaar/keystone/pkg/config"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// RepositoryFactory creates aggregate storages for the configured backend.
type RepositoryFactory struct {
	backend     string
	conn        database.Connection
	tables      migrations.Tables
	redis       redis.UniversalClient
	redisPrefix string
	breaker     *breaker.Config
	logger      *slog.Logger
	metrics     observability.Metrics
}

// NewRepositoryFactory creates a factory for cfg. conn must be set for the
// sql backend and client for the redis backend.
func NewRepositoryFactory(
	cfg *config.Config,
	conn database.Connection,
	client redis.UniversalClient,
	logger *slog.Logger,
	metrics observability.Metrics,
) (*RepositoryFactory, error) {
	f := &RepositoryFactory{
		backend:     cfg.StoreBackend,
		conn:        conn,
		redis:       client,
		redisPrefix: cfg.RedisKeyPrefix,
		logger:      logger,
		metrics:     metrics,
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
	case config.BackendSQL:
		if conn == nil {
			return nil, fmt.Errorf("sql backend requires a database connection")
		}
		tables, err := migrations.TableNames(cfg.TablePrefix)
		if err != nil {
			return nil, err
		}
		f.tables = tables
	case config.BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis backend requires a redis client")
		}
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}

	if cfg.BreakerEnabled && cfg.StoreBackend != config.BackendMemory {
		f.breaker = &breaker.Config{
			MaxRequests:      convert.IntToUint32Clamped(cfg.BreakerMaxRequests),
			Interval:         cfg.BreakerInterval,
			Timeout:          cfg.BreakerTimeout,
			FailureThreshold: convert.IntToUint32Clamped(cfg.BreakerFailureThreshold),
		}
		if f.breaker.FailureThreshold == 0 {
			f.breaker.FailureThreshold = breaker.DefaultConfig().FailureThreshold
		}
		if f.breaker.Timeout <= 0 {
			f.breaker.Timeout = 30 * time.Second
		}
	}
	return f, nil
}

// Backend returns the configured backend name.
func (f *RepositoryFactory) Backend() string {
	return f.backend
}

// Tables returns the SQL table names. Empty unless the backend is sql.
func (f *RepositoryFactory) Tables() migrations.Tables {
	return f.tables
}

// NewStorage creates the storage of aggregateType on the factory's backend.
func NewStorage[K comparable](f *RepositoryFactory, aggregateType string, codec persistence.RecordCodec[K]) persistence.Storage[K] {
	var storage persistence.Storage[K]
	switch f.backend {
	case config.BackendSQL:
		storage = sqlstore.New(f.conn, f.tables, aggregateType, codec, f.logger)
	case config.BackendRedis:
		storage = redisstore.New(f.redis, f.redisPrefix, aggregateType, codec, f.logger)
	default:
		return persistence.NewMemoryStorage[K]()
	}

	if f.breaker == nil {
		return storage
	}
	return breaker.Wrap(storage, aggregateType, *f.breaker, f.logger, f.metrics)
}

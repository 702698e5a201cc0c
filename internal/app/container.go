package app

import (
	"context"
	"fmt"
	"log/slog"

	numberCommands "github.com/felixgeelhaar/keystone/internal/numbers/application/commands"
	numberQueries "github.com/felixgeelhaar/keystone/internal/numbers/application/queries"
	numberDomain "github.com/felixgeelhaar/keystone/internal/numbers/domain"
	numberInfra "github.com/felixgeelhaar/keystone/internal/numbers/infrastructure"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/keystone/pkg/config"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Events
	EventPublisher eventbus.Publisher
	InProcessSink  *eventbus.InProcessSink
	EventSink      application.EventSink

	// Unit of work
	UnitOfWork *application.Manager

	// Storage
	Repositories *RepositoryFactory
	Numbers      *numberInfra.Numbers

	// Number command handlers
	CreateNumberHandler *numberCommands.CreateNumberHandler
	AddValueHandler     *numberCommands.AddValueHandler
	DeleteNumberHandler *numberCommands.DeleteNumberHandler

	// Number query handlers
	GetNumberHandler *numberQueries.GetNumberHandler

	Health *observability.HealthRegistry
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}

	factory, err := NewRepositoryFactory(cfg, c.DBConn, c.RedisClient, logger, c.Metrics)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Repositories = factory

	if c.DBDriver == database.DriverSQLite {
		// Local mode: keep the schema current without a separate migrate step.
		if err := c.Migrate(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	if err := c.connectEvents(); err != nil {
		c.Close()
		return nil, err
	}

	c.UnitOfWork = application.NewManager(
		application.WithEventSink(c.EventSink),
		application.WithLogger(logger),
		application.WithMetrics(c.Metrics),
	)

	kind, err := persistence.ParseStrategyKind(cfg.SerializationStrategy)
	if err != nil {
		c.Close()
		return nil, err
	}
	strategy, err := numberInfra.NewStrategy(kind, cfg.SnapshotThreshold)
	if err != nil {
		c.Close()
		return nil, err
	}
	storage := NewStorage(factory, numberDomain.AggregateType, numberInfra.NewRecordCodec())
	c.Numbers = numberInfra.NewNumbers(storage, strategy)

	// Create number command handlers
	c.CreateNumberHandler = numberCommands.NewCreateNumberHandler(c.Numbers, c.UnitOfWork)
	c.AddValueHandler = numberCommands.NewAddValueHandler(c.Numbers, c.UnitOfWork)
	c.DeleteNumberHandler = numberCommands.NewDeleteNumberHandler(c.Numbers, c.UnitOfWork)

	// Create number query handlers
	c.GetNumberHandler = numberQueries.NewGetNumberHandler(c.Numbers, c.UnitOfWork)

	logger.Info("container ready",
		"backend", cfg.StoreBackend,
		"sink", cfg.EventSink,
		"strategy", string(c.Numbers.Strategy()),
	)
	return c, nil
}

func (c *Container) connect(ctx context.Context) error {
	cfg := c.Config

	switch cfg.StoreBackend {
	case config.BackendSQL:
		conn, err := database.NewConnection(ctx, database.Config{
			Driver:     database.Driver(cfg.DatabaseDriver),
			URL:        cfg.DatabaseURL,
			SQLitePath: cfg.SQLitePath,
			MaxConns:   cfg.DatabaseMaxConns,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DBConn = conn
		c.DBDriver = conn.Driver()
		c.Health.Register("database", observability.StoreHealthChecker("database", conn.Ping))
		c.Logger.Info("connected to database", "driver", c.DBDriver.String())

	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.RedisClient = client
		c.Health.Register("redis", observability.StoreHealthChecker("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		c.Logger.Info("connected to Redis")
	}
	return nil
}

func (c *Container) connectEvents() error {
	cfg := c.Config

	switch cfg.EventSink {
	case config.SinkRabbitMQ:
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, c.Logger)
		if err != nil {
			// Fall back to noop publisher in development
			if !cfg.IsDevelopment() {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		} else {
			c.EventPublisher = publisher
			c.Health.Register("rabbitmq", observability.BrokerHealthChecker(publisher.Ping))
		}
		c.EventSink = eventbus.NewBrokerSink(c.EventPublisher, c.Logger)

	case config.SinkNoop:
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		c.EventSink = eventbus.NewBrokerSink(c.EventPublisher, c.Logger)

	default:
		sink := eventbus.NewInProcessSink(c.Logger)
		sink.RegisterConsumer(eventbus.NewLogConsumer(c.Logger, slog.LevelDebug))
		c.InProcessSink = sink
		c.EventSink = sink
	}
	return nil
}

// Migrate applies the store schema. Only the sql backend has one.
func (c *Container) Migrate(ctx context.Context) error {
	if c.DBConn == nil {
		return fmt.Errorf("migrations require the %s backend, configured: %s", config.BackendSQL, c.Config.StoreBackend)
	}
	if err := migrations.Run(ctx, c.DBConn, c.Repositories.Tables()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	c.Logger.Info("migrations applied", "driver", c.DBDriver.String())
	return nil
}

// Close releases resources held by the container.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed")
		}
	}
}

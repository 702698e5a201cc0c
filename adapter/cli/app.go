package cli

import (
	"context"

	numberCommands "github.com/felixgeelhaar/keystone/internal/numbers/application/commands"
	numberQueries "github.com/felixgeelhaar/keystone/internal/numbers/application/queries"
	"github.com/felixgeelhaar/keystone/pkg/config"
	"github.com/felixgeelhaar/keystone/pkg/observability"
)

// Migrator applies the store schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// App holds the CLI application dependencies.
type App struct {
	// Number Command Handlers
	CreateNumberHandler *numberCommands.CreateNumberHandler
	AddValueHandler     *numberCommands.AddValueHandler
	DeleteNumberHandler *numberCommands.DeleteNumberHandler

	// Number Query Handlers
	GetNumberHandler *numberQueries.GetNumberHandler

	Config   *config.Config
	Health   *observability.HealthRegistry
	Metrics  *observability.InMemoryMetrics
	Migrator Migrator
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	createNumberHandler *numberCommands.CreateNumberHandler,
	addValueHandler *numberCommands.AddValueHandler,
	deleteNumberHandler *numberCommands.DeleteNumberHandler,
	getNumberHandler *numberQueries.GetNumberHandler,
) *App {
	return &App{
		CreateNumberHandler: createNumberHandler,
		AddValueHandler:     addValueHandler,
		DeleteNumberHandler: deleteNumberHandler,
		GetNumberHandler:    getNumberHandler,
	}
}

// SetConfig updates the configuration shown by diagnostic commands.
func (a *App) SetConfig(cfg *config.Config) {
	a.Config = cfg
}

// SetHealth updates the health registry.
func (a *App) SetHealth(registry *observability.HealthRegistry) {
	a.Health = registry
}

// SetMetrics updates the metrics sink.
func (a *App) SetMetrics(metrics *observability.InMemoryMetrics) {
	a.Metrics = metrics
}

// SetMigrator updates the schema migrator.
func (a *App) SetMigrator(m Migrator) {
	a.Migrator = m
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

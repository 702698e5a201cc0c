package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	internalApp "github.com/felixgeelhaar/keystone/internal/app"
	"github.com/felixgeelhaar/keystone/pkg/config"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, strategy string) *App {
	t.Helper()

	cfg := &config.Config{
		AppEnv:                "test",
		StoreBackend:          config.BackendMemory,
		EventSink:             config.SinkInProcess,
		SerializationStrategy: strategy,
		SnapshotThreshold:     2,
	}
	container, err := internalApp.NewContainer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(container.Close)

	a := NewApp(
		container.CreateNumberHandler,
		container.AddValueHandler,
		container.DeleteNumberHandler,
		container.GetNumberHandler,
	)
	a.SetConfig(cfg)
	a.SetHealth(container.Health)
	a.SetMetrics(container.Metrics)
	a.SetMigrator(container)
	return a
}

func TestRunDemo(t *testing.T) {
	for _, strategy := range []string{"snapshots", "events", "events-with-snapshots"} {
		for _, soft := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s soft=%t", strategy, soft), func(t *testing.T) {
				a := newTestApp(t, strategy)
				var out bytes.Buffer

				require.NoError(t, runDemo(context.Background(), &out, a, soft))

				assert.Contains(t, out.String(), "value=6 version=3")
				assert.Contains(t, out.String(), "value=10 version=4")
				assert.Contains(t, out.String(), "rejected (bad_request)")
				assert.Contains(t, out.String(), "not found after delete")
				// Failed steps never reach the flush.
				assert.Equal(t, int64(3), a.Metrics.GetCounter(observability.MetricUoWFlush))
				assert.Zero(t, a.Metrics.GetCounter(observability.MetricUoWFlushFailed))
			})
		}
	}
}

func TestHealthCommand(t *testing.T) {
	a := newTestApp(t, "events")
	a.Health.Register("database", observability.StoreHealthChecker("database", func(context.Context) error {
		return errors.New("connection refused")
	}))
	SetApp(a)
	t.Cleanup(func() { SetApp(nil) })

	var out bytes.Buffer
	healthCmd.SetOut(&out)
	healthCmd.SetContext(context.Background())

	err := healthCmd.RunE(healthCmd, nil)
	require.Error(t, err)
	assert.Contains(t, out.String(), "status: unhealthy")
	assert.Contains(t, out.String(), "database: unhealthy")
}

func TestHealthCommand_SingleCheck(t *testing.T) {
	a := newTestApp(t, "events")
	a.Health.Register("database", observability.StoreHealthChecker("database", func(context.Context) error {
		return nil
	}))
	SetApp(a)
	t.Cleanup(func() {
		SetApp(nil)
		healthCheck = ""
	})

	var out bytes.Buffer
	healthCmd.SetOut(&out)
	healthCmd.SetContext(context.Background())

	healthCheck = "database"
	require.NoError(t, healthCmd.RunE(healthCmd, nil))
	assert.Equal(t, "database: healthy\n", out.String())

	healthCheck = "redis"
	err := healthCmd.RunE(healthCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown health check")
}

func TestMigrateCommandRequiresSQL(t *testing.T) {
	SetApp(newTestApp(t, "events"))
	t.Cleanup(func() { SetApp(nil) })

	migrateCmd.SetContext(context.Background())
	err := migrateCmd.RunE(migrateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sql backend")
}

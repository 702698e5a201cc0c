package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestHealthRegistry(t *testing.T) {
	registry := NewHealthRegistry()
	assert.Equal(t, HealthStatusHealthy, registry.OverallStatus())

	registry.Register("database", StoreHealthChecker("database", ok))
	registry.Register("rabbitmq", BrokerHealthChecker(func(context.Context) error { return errors.New("refused") }))

	health := registry.GetOverallHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, HealthStatusHealthy, health.Checks["database"].Status)
	assert.Contains(t, health.Checks["rabbitmq"].Message, "refused")
	assert.Equal(t, HealthStatusDegraded, registry.OverallStatus())

	registry.Register("database", StoreHealthChecker("database", func(context.Context) error { return errors.New("closed") }))
	registry.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, registry.OverallStatus())

	data, err := registry.GetOverallHealth(context.Background()).ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"unhealthy"`)
}

func TestHealthRegistry_CheckOne(t *testing.T) {
	registry := NewHealthRegistry()
	registry.Register("redis", StoreHealthChecker("redis", ok))

	result, found := registry.CheckOne(context.Background(), "redis")
	assert.True(t, found)
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.False(t, result.Timestamp.IsZero())

	_, found = registry.CheckOne(context.Background(), "missing")
	assert.False(t, found)
}

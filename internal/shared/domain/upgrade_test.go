package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceV1 struct{ Cents int }

func (priceV1) SchemaName() string { return "price.v1" }
func (p priceV1) UpgradeToNext() (domain.Schema, error) {
	return priceV2{Amount: float64(p.Cents) / 100}, nil
}

type priceV2 struct{ Amount float64 }

func (priceV2) SchemaName() string { return "price.v2" }
func (p priceV2) UpgradeToNext() (domain.Schema, error) {
	return priceV3{Amount: p.Amount, Currency: "EUR"}, nil
}

type priceV3 struct {
	Amount   float64
	Currency string
}

func (priceV3) SchemaName() string { return "price.v3" }

type pingSnapshot struct{}

func (pingSnapshot) SchemaName() string                    { return "ping" }
func (pingSnapshot) UpgradeToNext() (domain.Schema, error) { return pongSnapshot{}, nil }

type pongSnapshot struct{}

func (pongSnapshot) SchemaName() string                    { return "pong" }
func (pongSnapshot) UpgradeToNext() (domain.Schema, error) { return pingSnapshot{}, nil }

type endless struct{ N int }

func (e endless) SchemaName() string { return fmt.Sprintf("endless.v%d", e.N) }
func (e endless) UpgradeToNext() (domain.Schema, error) {
	return endless{N: e.N + 1}, nil
}

type brokenUpgrade struct{}

func (brokenUpgrade) SchemaName() string { return "broken" }
func (brokenUpgrade) UpgradeToNext() (domain.Schema, error) {
	return nil, errors.New("missing field")
}

func TestUpgradeToLatest(t *testing.T) {
	t.Run("walks the chain to the latest schema", func(t *testing.T) {
		latest, err := domain.UpgradeToLatest(priceV1{Cents: 250})

		require.NoError(t, err)
		assert.Equal(t, priceV3{Amount: 2.5, Currency: "EUR"}, latest)
	})

	t.Run("returns latest schema unchanged", func(t *testing.T) {
		in := priceV3{Amount: 1, Currency: "USD"}

		latest, err := domain.UpgradeToLatest(in)

		require.NoError(t, err)
		assert.Equal(t, in, latest)
	})

	t.Run("detects cycles", func(t *testing.T) {
		_, err := domain.UpgradeToLatest(pingSnapshot{})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCouldNotRestore)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("bounds chain length", func(t *testing.T) {
		_, err := domain.UpgradeToLatest(endless{})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCouldNotRestore)
	})

	t.Run("wraps upgrade failures", func(t *testing.T) {
		_, err := domain.UpgradeToLatest(brokenUpgrade{})

		assert.ErrorIs(t, err, domain.ErrCouldNotRestore)
	})

	t.Run("rejects nil payload", func(t *testing.T) {
		_, err := domain.UpgradeToLatest(nil)

		assert.ErrorIs(t, err, domain.ErrCouldNotRestore)
	})
}

func TestRecord_UpdateToLatestVersion(t *testing.T) {
	rec := domain.Record[string]{AggregateID: "p-1", Version: 3, Kind: domain.KindEvent, Payload: priceV2{Amount: 4}}

	upgraded, err := rec.UpdateToLatestVersion()

	require.NoError(t, err)
	assert.Equal(t, "p-1", upgraded.AggregateID)
	assert.Equal(t, domain.Version(3), upgraded.Version)
	assert.Equal(t, priceV3{Amount: 4, Currency: "EUR"}, upgraded.Payload)
	assert.Equal(t, priceV2{Amount: 4}, rec.Payload)
}

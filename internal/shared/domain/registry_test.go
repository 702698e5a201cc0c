package domain_test

import (
	"testing"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := domain.NewRegistry()
	domain.Register[counterIncremented](r)
	domain.Register[priceV1](r)

	t.Run("knows the tombstone", func(t *testing.T) {
		assert.Contains(t, r.Schemas(), domain.TombstoneSchema)

		s, err := r.Decode(domain.TombstoneSchema, []byte("{}"))
		require.NoError(t, err)
		assert.True(t, domain.IsTombstone(s))
	})

	t.Run("decodes what it encoded", func(t *testing.T) {
		name, data, err := r.Encode(counterIncremented{By: 3})
		require.NoError(t, err)
		assert.Equal(t, "counter.incremented", name)

		s, err := r.Decode(name, data)
		require.NoError(t, err)
		assert.Equal(t, counterIncremented{By: 3}, s)
	})

	t.Run("decoded stale schema can be upgraded", func(t *testing.T) {
		s, err := r.Decode("price.v1", []byte(`{"Cents":100}`))
		require.NoError(t, err)

		latest, err := domain.UpgradeToLatest(s)
		require.NoError(t, err)
		assert.Equal(t, priceV3{Amount: 1, Currency: "EUR"}, latest)
	})

	t.Run("unknown schema cannot be restored", func(t *testing.T) {
		_, err := r.Decode("nope", nil)

		assert.ErrorIs(t, err, domain.ErrCouldNotRestore)
	})

	t.Run("corrupt blob cannot be restored", func(t *testing.T) {
		_, err := r.Decode("counter.incremented", []byte("{"))

		assert.ErrorIs(t, err, domain.ErrCouldNotRestore)
	})

	t.Run("nil payload is a contract violation", func(t *testing.T) {
		_, _, err := r.Encode(nil)

		assert.ErrorIs(t, err, domain.ErrContractViolation)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() { domain.Register[counterIncremented](r) })
	})
}

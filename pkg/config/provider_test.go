package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStateStore implements store.StateStore for testing.
type MockStateStore struct {
	data map[string]string
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{data: make(map[string]string)}
}

func (m *MockStateStore) GetState(ctx context.Context, key string) (string, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *MockStateStore) SetState(ctx context.Context, key, val string) error {
	m.data[key] = val
	return nil
}

func (m *MockStateStore) DeleteState(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestUnifiedProvider(t *testing.T) {
	ctx := context.Background()
	base := DefaultConfig()
	base.Sim.AutoReset = Duration(3 * time.Second)

	st := NewMockStateStore()
	p := NewProvider(base, st)

	t.Run("Defaults_And_Fallbacks", func(t *testing.T) {
		assert.Equal(t, "light", p.Vehicle(ctx))
		assert.Equal(t, 3*time.Second, p.AutoReset(ctx))
		assert.Same(t, base, p.AppConfig())

		name, prof := p.Profile(ctx)
		assert.Equal(t, "light", name)
		assert.Equal(t, base.Vehicles["light"], prof)
	})

	t.Run("Persisted_Overrides", func(t *testing.T) {
		require.NoError(t, p.SetVehicle(ctx, "airliner"))
		require.NoError(t, p.SetAutoReset(ctx, 0))

		assert.Equal(t, "airliner", st.data[KeyVehicle])
		assert.Equal(t, "airliner", p.Vehicle(ctx))
		assert.Zero(t, p.AutoReset(ctx))
	})

	t.Run("Rejects_Unknown_Vehicle", func(t *testing.T) {
		err := p.SetVehicle(ctx, "zeppelin")
		assert.True(t, errors.Is(err, ErrUnknownVehicle))
		assert.Equal(t, "airliner", p.Vehicle(ctx))
	})

	t.Run("Stale_State_Ignored", func(t *testing.T) {
		st.data[KeyVehicle] = "removed-from-config"
		st.data[KeyAutoReset] = "garbage"
		assert.Equal(t, "light", p.Vehicle(ctx))
		assert.Equal(t, 3*time.Second, p.AutoReset(ctx))
	})

	t.Run("Negative_AutoReset", func(t *testing.T) {
		assert.Error(t, p.SetAutoReset(ctx, -time.Second))
	})

	t.Run("Without_Store", func(t *testing.T) {
		bare := NewProvider(base, nil)
		assert.Equal(t, "light", bare.Vehicle(ctx))
		assert.Error(t, bare.SetVehicle(ctx, "airliner"))
	})
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]PinStore {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pins.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]PinStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestPinStores(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			pins := []types.Pin{
				{ID: "pin_b", Latitude: 41.82, Longitude: -71.41, UserID: "alice", Timestamp: 2000},
				{ID: "pin_a", Latitude: 41.83, Longitude: -71.40, UserID: "bob", Timestamp: 1000},
				{ID: "pin_c", Latitude: 41.84, Longitude: -71.39, UserID: "alice", Timestamp: 3000},
			}
			for _, p := range pins {
				require.NoError(t, store.AddPin(ctx, p))
			}

			all, err := store.AllPins(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"pin_a", "pin_b", "pin_c"}, []string{all[0].ID, all[1].ID, all[2].ID})
			assert.Equal(t, pins[0], all[1])

			// Same id replaces the pin.
			moved := pins[1]
			moved.Latitude = 40
			require.NoError(t, store.AddPin(ctx, moved))
			all, err = store.AllPins(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, 40.0, all[0].Latitude)

			require.NoError(t, store.ClearUser(ctx, "alice"))
			all, err = store.AllPins(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "bob", all[0].UserID)

			require.NoError(t, store.ClearUser(ctx, "nobody"))
		})
	}
}

func TestPinStoresRejectInvalidPins(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.AddPin(ctx, types.Pin{ID: "pin_x"}), ErrInvalidPin)
			assert.ErrorIs(t, store.AddPin(ctx, types.Pin{UserID: "alice"}), ErrInvalidPin)

			all, err := store.AllPins(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pins.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.AddPin(ctx, types.Pin{ID: "pin_1", UserID: "alice", Latitude: 1, Longitude: 2, Timestamp: 3}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.AllPins(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, types.Pin{ID: "pin_1", UserID: "alice", Latitude: 1, Longitude: 2, Timestamp: 3}, all[0])
}

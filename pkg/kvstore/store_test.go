package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	bdb, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)

	sdb, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "cockpit.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemory(),
		"badger": bdb,
		"sqlite": sdb,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "loan-cockpit-state", []byte(`{"v":1}`)))
			got, err := store.Get(ctx, "loan-cockpit-state")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":1}`), got)

			require.NoError(t, store.Set(ctx, "loan-cockpit-state", []byte(`{"v":2}`)))
			got, err = store.Get(ctx, "loan-cockpit-state")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":2}`), got)

			require.NoError(t, store.Remove(ctx, "loan-cockpit-state"))
			_, err = store.Get(ctx, "loan-cockpit-state")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, store.Remove(ctx, "loan-cockpit-state"), "removing an absent key is not an error")
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")

	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cockpit.db")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("v")))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Config{Driver: DriverBadger, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: DriverBadger})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverRedis, RedisURL: "not-a-url"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: "etcd"})
	assert.Error(t, err)
}

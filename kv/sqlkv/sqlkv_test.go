package sqlkv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/olmstore/kv"
	"github.com/2389/olmstore/kv/kvtest"
)

func TestSQLKV_Conformance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Backend {
		store, err := Open(filepath.Join(t.TempDir(), "kv.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "crypto.account", "pickle"))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	v, found, err := store.Get(ctx, "crypto.account")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "pickle", v)
}

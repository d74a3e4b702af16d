// ABOUTME: Shared conformance suite for kv.Backend implementations
// ABOUTME: Run exercises the list/get/set/remove contract against any substrate

// Package kvtest provides a reusable conformance suite for kv.Backend
// implementations. Every backend in this module runs it.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/olmstore/kv"
)

// Factory constructs a fresh, empty backend for one subtest. Cleanup is
// the caller's job (register it with t.Cleanup inside the factory).
type Factory func(t *testing.T) kv.Backend

// Run exercises the kv.Backend contract against backends produced by
// the factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("GetAbsent", func(t *testing.T) {
		b := factory(t)
		_, found, err := b.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("SetGet", func(t *testing.T) {
		b := factory(t)
		require.NoError(t, b.Set(ctx, "a", "1"))
		v, found, err := b.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "1", v)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		b := factory(t)
		require.NoError(t, b.Set(ctx, "a", "1"))
		require.NoError(t, b.Set(ctx, "a", "2"))
		v, found, err := b.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "2", v)
	})

	t.Run("EmptyValueIsPresent", func(t *testing.T) {
		b := factory(t)
		require.NoError(t, b.Set(ctx, "a", ""))
		v, found, err := b.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "", v)
	})

	t.Run("RemoveIdempotent", func(t *testing.T) {
		b := factory(t)
		require.NoError(t, b.Set(ctx, "a", "1"))
		require.NoError(t, b.Remove(ctx, "a"))
		_, found, err := b.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, found)

		// Removing again is not an error.
		require.NoError(t, b.Remove(ctx, "a"))
		require.NoError(t, b.Remove(ctx, "never-existed"))
	})

	t.Run("ListKeys", func(t *testing.T) {
		b := factory(t)
		keys, err := b.ListKeys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)

		want := []string{"alpha", "beta/with/slashes", "gamma %25 escaped"}
		for _, k := range want {
			require.NoError(t, b.Set(ctx, k, "v"))
		}
		require.NoError(t, b.Remove(ctx, "alpha"))
		require.NoError(t, b.Set(ctx, "alpha", "v2"))

		keys, err = b.ListKeys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, want, keys)
	})

	t.Run("ClosedBackend", func(t *testing.T) {
		b := factory(t)
		require.NoError(t, b.Set(ctx, "a", "1"))
		require.NoError(t, b.Close())
		err := b.Set(ctx, "a", "2")
		assert.Error(t, err)
	})
}

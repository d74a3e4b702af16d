package olmstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/olmstore/config"
	"github.com/2389/olmstore/cryptostore"
)

func TestOpenBackend_Engines(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "default is memory", cfg: config.Config{}},
		{name: "memory", cfg: config.Config{Backend: config.BackendConfig{Engine: config.EngineMemory}}},
		{name: "sqlite", cfg: config.Config{Backend: config.BackendConfig{Engine: config.EngineSQLite}}},
		{name: "bolt", cfg: config.Config{Backend: config.BackendConfig{Engine: config.EngineBolt}}},
		{name: "pebble", cfg: config.Config{Backend: config.BackendConfig{Engine: config.EnginePebble}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Backend.Engine != "" && tt.cfg.Backend.Engine != config.EngineMemory {
				tt.cfg.Backend.Path = filepath.Join(t.TempDir(), "db")
			}
			backend, err := OpenBackend(&tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { backend.Close() })

			ctx := context.Background()
			require.NoError(t, backend.Set(ctx, "k", "v"))
			v, found, err := backend.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "v", v)
		})
	}
}

func TestOpenBackend_UnknownEngine(t *testing.T) {
	_, err := OpenBackend(&config.Config{Backend: config.BackendConfig{Engine: "leveldb"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leveldb")
}

func TestOpen_WiresStore(t *testing.T) {
	store, backend, err := Open(&config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ctx := context.Background()
	err = store.RunBatch(ctx, func(b *cryptostore.Batch) error {
		store.PutAccount(ctx, b, "pickled-account")
		return nil
	})
	require.NoError(t, err)

	count, err := store.CountSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

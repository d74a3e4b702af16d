// ABOUTME: Root package wiring configuration to storage backends and the crypto store
// ABOUTME: Dispatches the configured engine name to a concrete kv.Backend

// Package olmstore adapts flat key-value storage into the data-access
// contract of a Matrix end-to-end-encryption subsystem.
//
// The core lives in the cryptostore package; the storage substrates
// live under kv. This package only wires configuration to concrete
// backends.
package olmstore

import (
	"fmt"

	"github.com/2389/olmstore/config"
	"github.com/2389/olmstore/cryptostore"
	"github.com/2389/olmstore/kv"
	"github.com/2389/olmstore/kv/boltkv"
	"github.com/2389/olmstore/kv/pebblekv"
	"github.com/2389/olmstore/kv/sqlkv"
)

// OpenBackend opens the storage substrate the configuration selects.
// An empty engine name means the in-memory backend.
func OpenBackend(cfg *config.Config) (kv.Backend, error) {
	switch cfg.Backend.Engine {
	case "", config.EngineMemory:
		return kv.NewMemory(), nil
	case config.EngineSQLite:
		return sqlkv.Open(cfg.Backend.Path)
	case config.EngineBolt:
		return boltkv.Open(cfg.Backend.Path)
	case config.EnginePebble:
		return pebblekv.Open(cfg.Backend.Path)
	default:
		return nil, fmt.Errorf("unknown backend engine %q", cfg.Backend.Engine)
	}
}

// Open opens the configured backend and wraps it in the crypto store.
// Closing the returned backend closes the store's storage.
func Open(cfg *config.Config) (*cryptostore.FlatStore, kv.Backend, error) {
	backend, err := OpenBackend(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backend: %w", err)
	}
	return cryptostore.NewFlatStore(backend), backend, nil
}

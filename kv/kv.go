// ABOUTME: Backend interface for flat key-value storage substrates
// ABOUTME: Defines the list/get/set/remove contract the crypto store is built on

package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a backend that has been closed.
var ErrClosed = errors.New("backend is closed")

// Backend is a flat asynchronous key-value namespace. Implementations
// must make Set idempotent overwrites and Remove a no-op for absent
// keys. Get reports absence via the found flag, never via an error.
type Backend interface {
	// ListKeys returns every key currently stored, in no particular order.
	ListKeys(ctx context.Context) ([]string, error)

	// Get returns the value stored under key. found is false when the
	// key is absent; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key succeeds.
	Remove(ctx context.Context, key string) error

	// Close releases the backend's resources. Operations after Close
	// return ErrClosed.
	Close() error
}

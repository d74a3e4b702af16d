// ABOUTME: Entity codec serializing structured values to backend strings and back
// ABOUTME: Absent keys and stored JSON null both decode to "no value"

package cryptostore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/olmstore/kv"
)

// getJSON reads and decodes the value under key. It returns found=false
// for an absent key and for a stored literal null, so callers see one
// uniform "no value" result. Decode failures are malformed stored data
// and propagate.
func getJSON[T any](ctx context.Context, backend kv.Backend, key string) (T, bool, error) {
	var zero T
	raw, found, err := backend.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !found || raw == "null" {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, true, nil
}

// putJSON encodes v and stores it under key, overwriting any previous
// value.
func putJSON(ctx context.Context, backend kv.Backend, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := backend.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// ABOUTME: bbolt implementation of kv.Backend using a single bucket
// ABOUTME: Durable embedded substrate for platforms without SQLite

// Package boltkv provides a bbolt-backed kv.Backend. All entries live
// in one bucket, matching the flat namespace the contract describes.
package boltkv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/2389/olmstore/kv"
)

var bucketName = []byte("kv")

// Store implements kv.Backend over a bbolt database.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

var _ kv.Backend = (*Store)(nil)

// Open creates or opens a bbolt-backed store at the given path. Parent
// directories are created if needed.
func Open(path string) (*Store, error) {
	logger := slog.Default().With("component", "boltkv")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	logger.Info("bolt kv store initialized", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// ListKeys returns every stored key.
func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		// Cursor seek rather than Get: Get returns nil both for an
		// absent key and for a stored empty value.
		c := tx.Bucket(bucketName).Cursor()
		k, v := c.Seek([]byte(key))
		if string(k) == key {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, found, nil
}

// Set stores value under key, overwriting any existing value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Remove deletes key if present.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

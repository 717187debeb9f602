package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleDirName is the LSM directory created in the data directory.
const PebbleDirName = "pebble"

type pebbleStore struct {
	db *pebble.DB
}

func newPebbleStore(dir string) (*pebbleStore, error) {
	path := filepath.Join(dir, PebbleDirName)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}
	return &pebbleStore{db: db}, nil
}

// Get implements Store.
func (s *pebbleStore) Get(ctx context.Context, key string) (string, error) {
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer closer.Close()
	// v is only valid until closer.Close
	return string(v), nil
}

// Set implements Store.
func (s *pebbleStore) Set(ctx context.Context, key, value string) error {
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *pebbleStore) Delete(ctx context.Context, key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *pebbleStore) Close() error {
	return s.db.Close()
}

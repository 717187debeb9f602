// Package store persists session state as string values under string keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Common errors for store operations.
var (
	ErrNotFound         = errors.New("key not found")
	ErrInvalidConfig    = errors.New("invalid store configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
	ErrClosed           = errors.New("store is closed")
)

// Store is a flat key/value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// StoreType represents the storage backend.
type StoreType string

const (
	StoreTypeFile   StoreType = "file"
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypePebble StoreType = "pebble"
	StoreTypeRedis  StoreType = "redis"
)

// StoreTypes lists the accepted backend names.
var StoreTypes = []StoreType{StoreTypeFile, StoreTypeMemory, StoreTypeSQLite, StoreTypePebble, StoreTypeRedis}

// Option is a functional option for configuring a store.
type Option func(*storeConfig)

type storeConfig struct {
	dir         string
	redisClient *redis.Client
	redisPrefix string
	logger      *slog.Logger
}

// WithDir sets the data directory used by the file, sqlite and pebble backends.
func WithDir(dir string) Option {
	return func(c *storeConfig) {
		c.dir = dir
	}
}

// WithRedisClient sets the client for the redis backend.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisPrefix sets the key prefix for the redis backend.
func WithRedisPrefix(prefix string) Option {
	return func(c *storeConfig) {
		c.redisPrefix = prefix
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Store of the given type.
// The file, sqlite and pebble backends require WithDir; redis requires WithRedisClient.
func New(storeType StoreType, opts ...Option) (Store, error) {
	config := &storeConfig{
		redisPrefix: "finanzas:",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(config)
	}
	logger := config.logger.With("component", "store", "type", string(storeType))

	switch storeType {
	case StoreTypeMemory:
		return NewMemory(), nil

	case StoreTypeFile, StoreTypeSQLite, StoreTypePebble:
		if config.dir == "" {
			return nil, fmt.Errorf("%w: %s store requires a data directory", ErrInvalidConfig, storeType)
		}
		var (
			s   Store
			err error
		)
		switch storeType {
		case StoreTypeFile:
			s, err = newFileStore(config.dir, logger)
		case StoreTypeSQLite:
			s, err = newSQLiteStore(config.dir)
		default:
			s, err = newPebbleStore(config.dir)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("opened store", "dir", config.dir)
		return s, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, fmt.Errorf("%w: redis store requires a client", ErrInvalidConfig)
		}
		logger.Debug("using redis store", "prefix", config.redisPrefix)
		return &redisStore{client: config.redisClient, prefix: config.redisPrefix}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, storeType)
	}
}

package shared

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

// Cache is the response cache capability injected into clients.
// Values are opaque byte slices; callers own serialization.
type Cache interface {
	// Get returns the value stored under key or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases resources held by the cache
	Close() error
}

// NopCache is a Cache that stores nothing
type NopCache struct{}

// Get always misses
func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

// Set discards the value
func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// DeletePrefix does nothing
func (NopCache) DeletePrefix(context.Context, string) error { return nil }

// Close does nothing
func (NopCache) Close() error { return nil }

var _ Cache = NopCache{}

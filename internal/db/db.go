// Package db holds the contracts shared by the cache store implementations.
package db

import (
	"context"
	"time"
)

// Cache is the key-value store that backs the embedding cache.
type Cache interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	// SetWithTTL stores value under key. A non-positive ttl stores without expiry.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Package redis implements the embedding cache store on rueidis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shelfsearch/internal/db"
)

var _ db.Cache = (*Store)(nil)

// Bounds of the WaitForReady backoff.
const (
	readyBackoffMin = 50 * time.Millisecond
	readyBackoffMax = time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// DialTimeout bounds connection setup. Zero keeps the rueidis default.
	DialTimeout time.Duration
}

// Store is a rueidis-backed db.Cache.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis. Client-side caching is off: cached vectors
// are read once per process and then served from the in-memory LRU.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis addrs is required")
	}

	opt := rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	}
	if cfg.DialTimeout > 0 {
		opt.Dialer.Timeout = cfg.DialTimeout
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	return newStore(client), nil
}

func newStore(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings until Redis answers or timeout expires. The first ping
// is immediate; retries back off up to readyBackoffMax.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := readyBackoffMin
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready (last error: %v): %w", err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, readyBackoffMax)
	}
}

package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shelfsearch/internal/db"
)

// Get returns the value at key or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores value at key, expiring after ttl. Sub-second TTLs round
// up to one second; a non-positive ttl never expires.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	set := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value))

	var cmd rueidis.Completed
	switch {
	case ttl <= 0:
		cmd = set.Build()
	case ttl < time.Second:
		cmd = set.Ex(time.Second).Build()
	default:
		cmd = set.Ex(ttl).Build()
	}

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

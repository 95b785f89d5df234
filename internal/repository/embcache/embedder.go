package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfsearch/internal/db"
	"github.com/kailas-cloud/shelfsearch/internal/domain"
)

const cacheKeyPrefix = "shelfsearch:emb_cache:"

// DefaultMemorySize is the in-process entry count used when none is configured.
const DefaultMemorySize = 4096

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configure the cache layers.
type Options struct {
	// MemorySize bounds the in-process LRU. Zero uses DefaultMemorySize.
	MemorySize int
	// TTL is the Redis expiry of cached vectors.
	TTL time.Duration
	// CacheTotal has labels "layer" (memory/redis) and "result" (hit/miss).
	CacheTotal *prometheus.CounterVec
}

// CachedEmbedder caches query embeddings in an in-process LRU backed by a
// shared key-value store. The store is optional.
type CachedEmbedder struct {
	inner      domain.Embedder
	memory     *lru.Cache[string, []float32]
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. s may be nil for a memory-only cache.
func New(inner domain.Embedder, s store, opts Options, logger *zap.Logger) (*CachedEmbedder, error) {
	size := opts.MemorySize
	if size <= 0 {
		size = DefaultMemorySize
	}
	memory, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}

	return &CachedEmbedder{
		inner:      inner,
		memory:     memory,
		store:      s,
		ttl:        opts.TTL,
		cacheTotal: opts.CacheTotal,
		logger:     logger,
	}, nil
}

// Embed returns a cached embedding or calls the inner embedder.
// A hit is marked Cached and reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.memory.Get(key); ok {
		c.incCache("memory", "hit")
		return domain.EmbeddingResult{Embedding: vec, Cached: true}, nil
	}
	c.incCache("memory", "miss")

	if c.store != nil {
		if vec, ok := c.getFromStore(ctx, key); ok {
			c.incCache("redis", "hit")
			c.memory.Add(key, vec)
			return domain.EmbeddingResult{Embedding: vec, Cached: true}, nil
		}
		c.incCache("redis", "miss")
	}

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if len(result.Embedding) == 0 {
		return result, nil
	}

	c.memory.Add(key, result.Embedding)
	c.putToStore(ctx, key, result.Embedding)
	return result, nil
}

func (c *CachedEmbedder) incCache(layer, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(layer, result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromStore(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToStore(ctx context.Context, key string, vec []float32) {
	if c.store == nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

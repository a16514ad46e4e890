package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// cacheKeyRunes is how much of the text identifies a cached embedding.
const cacheKeyRunes = 100

// CacheKey returns the memoization key for text: its first 100 characters.
func CacheKey(text string) string {
	r := []rune(text)
	if len(r) > cacheKeyRunes {
		r = r[:cacheKeyRunes]
	}

	return string(r)
}

// Cache memoizes embeddings by content key. Lookups never fail; a backend
// error is reported as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Set(ctx context.Context, key string, vec []float64)
}

// LRUCache is an in-process bounded cache.
type LRUCache struct {
	c *lru.Cache[string, []float64]
}

// NewLRUCache creates an LRUCache holding at most size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding LRU: %w", err)
	}

	return &LRUCache{c: c}, nil
}

// Get implements Cache.
func (l *LRUCache) Get(_ context.Context, key string) ([]float64, bool) {
	v, ok := l.c.Get(key)
	if !ok {
		return nil, false
	}

	return slices.Clone(v), true
}

// Set implements Cache.
func (l *LRUCache) Set(_ context.Context, key string, vec []float64) {
	l.c.Add(key, slices.Clone(vec))
}

// Len returns the number of cached entries.
func (l *LRUCache) Len() int {
	return l.c.Len()
}

// RedisCache shares embeddings across processes through Redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedisCache connects to addr and verifies the connection. Keys are
// namespaced by model so vectors of different sizes never mix.
func NewRedisCache(ctx context.Context, addr, model string, ttl time.Duration, log *logrus.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // best-effort close after failed ping.
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisCache(rdb, model, ttl, log), nil
}

func newRedisCache(rdb *redis.Client, model string, ttl time.Duration, log *logrus.Logger) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		prefix: "nexus:emb:" + model + ":",
		ttl:    ttl,
		log:    log,
	}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]float64, bool) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithError(err).Debug("redis embedding cache get failed")
		}

		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		r.log.WithError(err).Warn("discarding corrupt cached embedding")
		return nil, false
	}

	return vec, true
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, vec []float64) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}

	if err := r.rdb.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		r.log.WithError(err).Debug("redis embedding cache set failed")
	}
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}

// TieredCache consults a fast local cache before a shared one and
// back-fills the local tier on shared hits.
type TieredCache struct {
	local  Cache
	shared Cache
}

// NewTieredCache layers local in front of shared.
func NewTieredCache(local, shared Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Get implements Cache.
func (t *TieredCache) Get(ctx context.Context, key string) ([]float64, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}

	v, ok := t.shared.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, v)
	}

	return v, ok
}

// Set implements Cache.
func (t *TieredCache) Set(ctx context.Context, key string, vec []float64) {
	t.local.Set(ctx, key, vec)
	t.shared.Set(ctx, key, vec)
}

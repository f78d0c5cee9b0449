package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// DefaultCacheTTL matches the dashboard's five minute quote cache.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores raw JSON payloads with a TTL. Get returns ErrCacheMiss for
// absent or expired keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	data    []byte
	expires time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns the cached value for key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrCacheMiss
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, apperrors.ErrCacheMiss
	}
	return entry.data, nil
}

// Set stores value under key until ttl elapses.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = cacheEntry{data: value, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache is a Cache shared through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis at addr.
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: "stockwatch:",
	}
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached value for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrCacheMiss
	}
	return data, err
}

// Set stores value under key until ttl elapses.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedProvider serves repeated requests from a Cache.
type CachedProvider struct {
	next   Provider
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider wraps next with cache. A non-positive ttl uses DefaultCacheTTL.
func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Candles returns cached candles or fetches and caches them.
func (p *CachedProvider) Candles(ctx context.Context, symbol, rng, interval string) ([]models.Candle, error) {
	key := fmt.Sprintf("candles:%s:%s:%s", strings.ToUpper(symbol), rng, interval)
	return cached(ctx, p, key, func() ([]models.Candle, error) {
		return p.next.Candles(ctx, symbol, rng, interval)
	})
}

// Quote returns a cached quote or fetches and caches it.
func (p *CachedProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := "quote:" + strings.ToUpper(symbol)
	return cached(ctx, p, key, func() (*models.Quote, error) {
		return p.next.Quote(ctx, symbol)
	})
}

func cached[T any](ctx context.Context, p *CachedProvider, key string, fetch func() (T, error)) (T, error) {
	if data, err := p.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			p.logger.Debug().Str("key", key).Msg("Cache hit")
			return v, nil
		}
	} else if !errors.Is(err, apperrors.ErrCacheMiss) {
		p.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return v, nil
}

package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
)

const (
	defaultMemoryCacheSize = 256
	defaultMemoryCacheTTL  = 30 * time.Minute
	defaultRedisTTL        = 24 * time.Hour
)

// ContextCache holds retrieved guideline passages keyed by drug and phenotype.
// An in-process expiring LRU sits in front of an optional Redis tier; Redis
// failures degrade to memory-only caching and are never returned to callers.
type ContextCache struct {
	memory     *expirable.LRU[string, string]
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// CachedContext represents a cached passage with metadata
type CachedContext struct {
	Text      string    `json:"text"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewContextCache creates a cache. Redis is used only when RedisURL is set.
func NewContextCache(config domain.CacheConfig, logger *logrus.Logger) (*ContextCache, error) {
	size := config.MemorySize
	if size <= 0 {
		size = defaultMemoryCacheSize
	}
	memoryTTL := config.MemoryTTL
	if memoryTTL <= 0 {
		memoryTTL = defaultMemoryCacheTTL
	}
	defaultTTL := config.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = defaultRedisTTL
	}

	cache := &ContextCache{
		memory:     expirable.NewLRU[string, string](size, nil, memoryTTL),
		defaultTTL: defaultTTL,
		logger:     logger,
	}

	if config.RedisURL == "" {
		return cache, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache.redis = client
	return cache, nil
}

// Get returns the cached passage for a drug and phenotype
func (c *ContextCache) Get(ctx context.Context, drug, phenotype string) (string, bool) {
	key := contextKey(drug, phenotype)

	if text, ok := c.memory.Get(key); ok {
		return text, true
	}
	if c.redis == nil {
		return "", false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis context cache read failed")
		return "", false
	}

	var cached CachedContext
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return "", false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return "", false
	}

	c.memory.Add(key, cached.Text)
	return cached.Text, true
}

// Set stores a passage. Empty passages are not cached.
func (c *ContextCache) Set(ctx context.Context, drug, phenotype, text string) {
	if text == "" {
		return
	}
	key := contextKey(drug, phenotype)
	c.memory.Add(key, text)

	if c.redis == nil {
		return
	}

	now := time.Now()
	data, err := json.Marshal(CachedContext{
		Text:      text,
		CachedAt:  now,
		ExpiresAt: now.Add(c.defaultTTL),
	})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal context cache entry")
		return
	}

	if err := c.redis.Set(ctx, key, data, c.defaultTTL).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis context cache write failed")
	}
}

// Stats returns cache statistics
func (c *ContextCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"memory_entries": c.memory.Len(),
		"redis_enabled":  c.redis != nil,
	}
	if c.redis != nil {
		pool := c.redis.PoolStats()
		stats["redis_pool"] = map[string]interface{}{
			"hits":        pool.Hits,
			"misses":      pool.Misses,
			"timeouts":    pool.Timeouts,
			"total_conns": pool.TotalConns,
			"idle_conns":  pool.IdleConns,
		}
	}
	return stats
}

// Ping checks the Redis tier when one is configured
func (c *ContextCache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *ContextCache) Close() error {
	c.memory.Purge()
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// contextKey creates a standardized cache key for a drug and phenotype
func contextKey(drug, phenotype string) string {
	data := fmt.Sprintf("%s|%s", strings.ToUpper(strings.TrimSpace(drug)), strings.ToLower(strings.TrimSpace(phenotype)))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("pgx:context:%x", hash[:8])
}

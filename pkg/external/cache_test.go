package external

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niramay-pgx-server/internal/domain"
)

func newMemoryCache(t *testing.T) *ContextCache {
	t.Helper()
	cache, err := NewContextCache(domain.CacheConfig{MemorySize: 16, MemoryTTL: time.Minute}, testLogger())
	require.NoError(t, err)
	return cache
}

func TestContextCache_MemoryTier(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t)
	defer cache.Close()

	_, found := cache.Get(ctx, "WARFARIN", "Poor Metabolizer")
	assert.False(t, found)

	cache.Set(ctx, "WARFARIN", "Poor Metabolizer", "CYP2C9 metabolizes S-warfarin.")

	text, found := cache.Get(ctx, "warfarin ", "poor metabolizer")
	assert.True(t, found)
	assert.Equal(t, "CYP2C9 metabolizes S-warfarin.", text)

	_, found = cache.Get(ctx, "WARFARIN", "Intermediate Metabolizer")
	assert.False(t, found)

	stats := cache.Stats()
	assert.Equal(t, 1, stats["memory_entries"])
	assert.Equal(t, false, stats["redis_enabled"])
	assert.NoError(t, cache.Ping(ctx))
}

func TestContextCache_EmptyTextNotCached(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t)

	cache.Set(ctx, "CODEINE", "Poor Metabolizer", "")
	_, found := cache.Get(ctx, "CODEINE", "Poor Metabolizer")
	assert.False(t, found)
}

func TestContextCache_Eviction(t *testing.T) {
	ctx := context.Background()
	cache, err := NewContextCache(domain.CacheConfig{MemorySize: 1, MemoryTTL: time.Minute}, testLogger())
	require.NoError(t, err)

	cache.Set(ctx, "CODEINE", "Poor Metabolizer", "first")
	cache.Set(ctx, "WARFARIN", "Poor Metabolizer", "second")

	_, found := cache.Get(ctx, "CODEINE", "Poor Metabolizer")
	assert.False(t, found)
	text, found := cache.Get(ctx, "WARFARIN", "Poor Metabolizer")
	assert.True(t, found)
	assert.Equal(t, "second", text)
}

func TestNewContextCache_InvalidRedisURL(t *testing.T) {
	_, err := NewContextCache(domain.CacheConfig{RedisURL: "not-a-url://"}, testLogger())
	assert.Error(t, err)
}

func TestContextKey(t *testing.T) {
	assert.Equal(t, contextKey("WARFARIN", "Poor Metabolizer"), contextKey(" warfarin", "POOR METABOLIZER "))
	assert.NotEqual(t, contextKey("WARFARIN", "Poor Metabolizer"), contextKey("CODEINE", "Poor Metabolizer"))
	assert.Contains(t, contextKey("WARFARIN", "Poor Metabolizer"), "pgx:context:")
}

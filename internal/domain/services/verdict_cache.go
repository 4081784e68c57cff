package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mobiguard/internal/domain/models"
	"mobiguard/internal/infrastructure/cache"
	"mobiguard/pkg/logger"
)

// VerdictCache sits in front of the provider adapters to avoid redundant
// calls for the same subject within a scan session. Misses and expired
// entries are indistinguishable to callers.
type VerdictCache interface {
	Get(ctx context.Context, provider, subjectID string) (models.ProviderVerdict, bool)
	Put(ctx context.Context, provider, subjectID string, verdict models.ProviderVerdict, ttl time.Duration)
}

// memoryCacheEntry is one cached verdict with its expiry
type memoryCacheEntry struct {
	verdict   models.ProviderVerdict
	expiresAt time.Time
}

// MemoryVerdictCache is an in-memory VerdictCache with TTL-based expiry
type MemoryVerdictCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

// NewMemoryVerdictCache creates an empty in-memory verdict cache
func NewMemoryVerdictCache() *MemoryVerdictCache {
	return &MemoryVerdictCache{
		entries: make(map[string]memoryCacheEntry),
	}
}

// Get retrieves a cached verdict, treating expired entries as absent
func (c *MemoryVerdictCache) Get(_ context.Context, provider, subjectID string) (models.ProviderVerdict, bool) {
	c.mu.RLock()
	entry, ok := c.entries[verdictKey(provider, subjectID)]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return models.ProviderVerdict{}, false
	}
	return entry.verdict, true
}

// Put stores a verdict with the given TTL
func (c *MemoryVerdictCache) Put(_ context.Context, provider, subjectID string, verdict models.ProviderVerdict, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[verdictKey(provider, subjectID)] = memoryCacheEntry{
		verdict:   verdict,
		expiresAt: time.Now().Add(ttl),
	}
}

// RedisVerdictCache is a VerdictCache backed by Redis, sharing cached
// verdicts across processes. Redis failures degrade to cache misses.
type RedisVerdictCache struct {
	cache  *cache.RedisCache
	logger *logger.Logger
}

// NewRedisVerdictCache creates a Redis-backed verdict cache
func NewRedisVerdictCache(c *cache.RedisCache, log *logger.Logger) *RedisVerdictCache {
	return &RedisVerdictCache{
		cache:  c,
		logger: log.WithComponent("verdict-cache"),
	}
}

// Get retrieves a cached verdict from Redis
func (c *RedisVerdictCache) Get(ctx context.Context, provider, subjectID string) (models.ProviderVerdict, bool) {
	var verdict models.ProviderVerdict
	err := c.cache.GetJSON(ctx, verdictKey(provider, subjectID), &verdict)
	if err == redis.Nil {
		return models.ProviderVerdict{}, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("provider", provider).Msg("verdict cache read failed")
		return models.ProviderVerdict{}, false
	}
	return verdict, true
}

// Put stores a verdict in Redis with the given TTL
func (c *RedisVerdictCache) Put(ctx context.Context, provider, subjectID string, verdict models.ProviderVerdict, ttl time.Duration) {
	if err := c.cache.SetJSON(ctx, verdictKey(provider, subjectID), verdict, ttl); err != nil {
		c.logger.Warn().Err(err).Str("provider", provider).Msg("verdict cache write failed")
	}
}

func verdictKey(provider, subjectID string) string {
	return fmt.Sprintf("%s%s:%s", cache.KeyVerdictPrefix, provider, subjectID)
}

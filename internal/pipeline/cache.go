// internal/pipeline/cache.go
package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techvna-coder/ata-wo-analyzer/internal/common/errors"
	"github.com/techvna-coder/ata-wo-analyzer/internal/models"
)

// textAnalysis holds the sub-results derived purely from work-order
// text. The final decision is never cached: it depends on the row's own
// entered ATA, and two rows with identical text can carry different
// entered chapters.
type textAnalysis struct {
	Gate     models.GateResult     `json:"gate"`
	Citation models.CitationResult `json:"citation"`
	Catalog  models.CatalogResult  `json:"catalog"`
}

// Cache stores text analyses keyed by the work-order text digest.
type Cache interface {
	Get(ctx context.Context, key string) (*textAnalysis, bool, error)
	Set(ctx context.Context, key string, analysis *textAnalysis) error
}

// CacheKey digests the combined work-order text. Same text, same key,
// regardless of the entered ATA.
func CacheKey(description, rectification string) string {
	sum := sha1.Sum([]byte(description + "|" + rectification))
	return hex.EncodeToString(sum[:])[:16]
}

// RedisCache shares text analyses across workers through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "woa:text:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*textAnalysis, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewCacheOperationError(err)
	}

	var analysis textAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		// Corrupt entry: treat as a miss so it gets rewritten.
		return nil, false, nil
	}
	return &analysis, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, analysis *textAnalysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return errors.NewCacheOperationError(err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return errors.NewCacheOperationError(err)
	}
	return nil
}

// MapCache is an in-process cache for single-shot batch runs and tests.
type MapCache struct {
	mu      sync.RWMutex
	entries map[string]textAnalysis
}

func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]textAnalysis)}
}

func (c *MapCache) Get(_ context.Context, key string) (*textAnalysis, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[key]; ok {
		out := entry
		return &out, true, nil
	}
	return nil, false, nil
}

func (c *MapCache) Set(_ context.Context, key string, analysis *textAnalysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *analysis
	return nil
}

// Len reports the number of cached analyses.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// SemanticCache is a content-addressed cache of prior generation results.
// It is a cost optimization, not a correctness boundary: any backing-store
// failure degrades to a miss (get) or a no-op (set) and is logged, never
// surfaced. Two concurrent requests may both miss and both generate; that
// duplicate work is accepted.
type SemanticCache struct {
	client        *redis.Client
	promptVersion string
	defaultTTL    time.Duration
}

// NewSemanticCache wraps a redis client. A nil client disables the cache
// entirely (every get is a miss, every set a no-op).
func NewSemanticCache(client *redis.Client, promptVersion string, defaultTTL time.Duration) *SemanticCache {
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	return &SemanticCache{
		client:        client,
		promptVersion: promptVersion,
		defaultTTL:    defaultTTL,
	}
}

// Key derives the cache key for a generation request. The prompt version
// and item count are part of the hash so prompt changes or depth changes
// never return stale or mismatched results.
func (c *SemanticCache) Key(text, task string, itemCount int) string {
	material := fmt.Sprintf("%s:%s:%s", c.promptVersion, task, text)
	if itemCount > 0 {
		material += fmt.Sprintf(":items%d", itemCount)
	}
	digest := sha256.Sum256([]byte(material))
	return fmt.Sprintf("llm:cache:%s:%s", task, hex.EncodeToString(digest[:])[:32])
}

// Get returns the cached payload for the request, or ok=false on a miss
// or any store error.
func (c *SemanticCache) Get(ctx context.Context, text, task string, itemCount int) (string, bool) {
	if c.client == nil {
		return "", false
	}

	val, err := c.client.Get(ctx, c.Key(text, task, itemCount)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warnf("[Cache] get failed, treating as miss: %v", err)
		return "", false
	}
	return val, true
}

// Set stores a serialized generation result. ttl<=0 uses the default.
func (c *SemanticCache) Set(ctx context.Context, text, task, value string, ttl time.Duration, itemCount int) {
	if c.client == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, c.Key(text, task, itemCount), value, ttl).Err(); err != nil {
		logger.Warnf("[Cache] set failed, skipping write: %v", err)
	}
}

// Invalidate deletes cached entries, optionally scoped to one task, and
// returns the number of keys removed. Scans in batches so large caches
// do not block the store.
func (c *SemanticCache) Invalidate(ctx context.Context, taskFilter string) (int, error) {
	if c.client == nil {
		return 0, nil
	}

	pattern := "llm:cache:*"
	if taskFilter != "" {
		pattern = fmt.Sprintf("llm:cache:%s:*", taskFilter)
	}

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache scan failed: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("cache delete failed: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	logger.Infof("[Cache] invalidated %d entries (filter=%q)", deleted, taskFilter)
	return deleted, nil
}

package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rensmac/sqlgate/internal/warehouse"
)

const (
	queryCachePrefix = "qcache:"
	defaultCacheTTL  = 60 * time.Second
)

// ResultCache holds recent query results so repeated dashboard loads skip
// the warehouse round trip. Entries are keyed by the rewritten safe query,
// never the raw input.
type ResultCache struct {
	client *Client
	ttl    time.Duration
}

// NewResultCache creates a new result cache
func NewResultCache(client *Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResultCache{client: client, ttl: ttl}
}

func cacheKey(warehouseName, safeQuery string) string {
	sum := sha256.Sum256([]byte(warehouseName + "\n" + safeQuery))
	return queryCachePrefix + hex.EncodeToString(sum[:])
}

// Get retrieves a cached result for a safe query
func (c *ResultCache) Get(ctx context.Context, warehouseName, safeQuery string) (*warehouse.QueryResult, error) {
	data, err := c.client.rdb.Get(ctx, cacheKey(warehouseName, safeQuery)).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var result warehouse.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &result, nil
}

// Set caches the result of a safe query
func (c *ResultCache) Set(ctx context.Context, warehouseName, safeQuery string, result *warehouse.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return c.client.rdb.Set(ctx, cacheKey(warehouseName, safeQuery), data, c.ttl).Err()
}

// FlushAll removes all cached query results
func (c *ResultCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := queryCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

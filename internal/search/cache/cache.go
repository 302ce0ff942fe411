// Package cache provides a Redis-backed cache for search responses. Cached
// entries are keyed on the normalized query plus the result limit and depth
// flag; concurrent misses for the same key collapse into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/caselens/caselens/internal/retrieval"
	"github.com/caselens/caselens/pkg/config"
	pkgredis "github.com/caselens/caselens/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int, deep bool) ([]retrieval.Result, bool) {
	key := c.buildKey(query, limit, deep)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var results []retrieval.Result
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, deep bool, results []retrieval.Result) {
	key := c.buildKey(query, limit, deep)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached results for the query, or runs computeFn
// once for all concurrent callers and caches its output. The second return
// reports whether the response came from cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	deep bool,
	computeFn func() ([]retrieval.Result, error),
) ([]retrieval.Result, bool, error) {
	if results, ok := c.Get(ctx, query, limit, deep); ok {
		return results, true, nil
	}
	key := c.buildKey(query, limit, deep)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, query, limit, deep); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, deep, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]retrieval.Result), false, nil
}

// Invalidate removes every cached search response. Called after the corpus
// changes so stale rankings are not served.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(query string, limit int, deep bool) string {
	raw := fmt.Sprintf("%s:limit=%d:deep=%t", normalizeQuery(query), limit, deep)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery lowercases and sorts the query words so that reorderings of
// the same terms share a cache entry.
func normalizeQuery(query string) string {
	words := strings.Fields(strings.ToLower(query))
	sort.Strings(words)
	return strings.Join(words, " ")
}

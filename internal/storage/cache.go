// cache.go - Catalog snapshot cache

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/bosocmputer/product_label_matcher/internal/metrics"
	"go.uber.org/zap"
)

// CatalogCache holds the current catalog index. Each Get returns an
// immutable snapshot; a refresh swaps in a new index without touching
// snapshots already handed out.
type CatalogCache struct {
	source Source
	schema catalog.Schema
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.RWMutex
	index    *catalog.Index
	stats    catalog.BuildStats
	loadedAt time.Time
}

// NewCatalogCache creates a cache. ttl <= 0 loads once per process.
func NewCatalogCache(source Source, schema catalog.Schema, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{source: source, schema: schema, ttl: ttl, logger: logger}
}

// Get returns the cached index, loading or refreshing it when needed. If a
// refresh fails while an older snapshot exists, the old one is returned.
func (c *CatalogCache) Get(ctx context.Context) (*catalog.Index, error) {
	c.mu.RLock()
	idx, fresh := c.index, c.isFresh()
	c.mu.RUnlock()
	if idx != nil && fresh {
		return idx, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.index != nil && c.isFresh() {
		return c.index, nil
	}

	newIdx, stats, err := LoadIndex(ctx, c.source, c.schema, c.logger)
	if err != nil {
		if c.index != nil {
			c.logger.Warn("catalog refresh failed, serving previous snapshot", zap.Error(err))
			return c.index, nil
		}
		return nil, err
	}

	c.index = newIdx
	c.stats = stats
	c.loadedAt = time.Now()
	metrics.CatalogRecords.Set(float64(newIdx.Len()))
	return newIdx, nil
}

// Stats reports the last successful load.
func (c *CatalogCache) Stats() (catalog.BuildStats, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats, c.loadedAt
}

// Invalidate forces the next Get to reload.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}

// isFresh must be called with mu held.
func (c *CatalogCache) isFresh() bool {
	if c.loadedAt.IsZero() {
		return false
	}
	return c.ttl <= 0 || time.Since(c.loadedAt) < c.ttl
}

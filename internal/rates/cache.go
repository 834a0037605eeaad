package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/folio-dev/folio/internal/model"
)

const cacheKey = "rates"

// Source produces a rate table without failing.
type Source interface {
	Rates(ctx context.Context) model.RateTable
}

// Cache memoizes a Source for a fixed TTL. It is shared by every caller in
// the process; Invalidate is visible to all of them on their next Get.
type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
	src Source
	mu  sync.Mutex
}

// NewCache wraps src with a TTL cache.
func NewCache(src Source, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rate cache: %w", err)
	}
	return &Cache{c: c, ttl: ttl, src: src}, nil
}

// Get returns the cached table, refreshing it from the source on expiry.
// Callers receive their own copy.
func (c *Cache) Get(ctx context.Context) model.RateTable {
	if v, ok := c.c.Get(cacheKey); ok {
		return v.(model.RateTable).Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.c.Get(cacheKey); ok {
		return v.(model.RateTable).Clone()
	}

	table := c.src.Rates(ctx)
	c.c.SetWithTTL(cacheKey, table, 1, c.ttl)
	c.c.Wait()
	return table.Clone()
}

// Rates makes Cache a Source itself.
func (c *Cache) Rates(ctx context.Context) model.RateTable { return c.Get(ctx) }

// Invalidate drops the cached table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.c.Del(cacheKey)
	c.c.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() { c.c.Close() }

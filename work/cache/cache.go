package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"moontv/work/filter"
	"moontv/work/logger"
	"moontv/work/parser"
	"moontv/work/source"
	"moontv/work/types"
)

// CatalogCache holds the parsed catalog snapshot and refreshes it from
// the source-of-record once the TTL lapses. Reads never block behind a
// refresh they did not trigger: concurrent expired reads collapse into
// a single loader call, and a failed refresh hands back the last good
// snapshot instead of an error. Callers always get a usable snapshot.
type CatalogCache struct {
	loader source.Loader
	ttl    time.Duration

	mu       sync.RWMutex
	snapshot *types.CatalogSnapshot
	loadedAt time.Time

	group singleflight.Group

	// Filter, when set, prunes channels after every parse.
	Filter *filter.Filter

	// OnReload is invoked after every attempted refresh with the
	// outcome. Used for metrics; may be nil.
	OnReload func(ok bool)
}

// NewCatalogCache returns a cache that starts empty. The first Get
// triggers the initial load.
func NewCatalogCache(loader source.Loader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		loader:   loader,
		ttl:      ttl,
		snapshot: types.EmptySnapshot(),
	}
}

// Get returns the current catalog snapshot, refreshing it first when
// the TTL has lapsed. It never returns an error: when the source is
// unreachable the previous snapshot (or an empty one on cold start)
// is returned and the failure is logged.
func (c *CatalogCache) Get(ctx context.Context) *types.CatalogSnapshot {
	c.mu.RLock()
	snap := c.snapshot
	fresh := !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		return snap
	}
	return c.reload(ctx)
}

// Invalidate drops the snapshot's freshness so the next Get reloads.
// The stale snapshot stays in place as the fallback until then.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
	logger.Debug("{cache - Invalidate} catalog snapshot marked stale")
}

// LoadedAt reports when the current snapshot was loaded. Zero when no
// load has succeeded yet.
func (c *CatalogCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *CatalogCache) reload(ctx context.Context) *types.CatalogSnapshot {
	v, _, _ := c.group.Do("catalog", func() (interface{}, error) {
		// Another caller may have refreshed while we queued.
		c.mu.RLock()
		snap := c.snapshot
		fresh := !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl
		c.mu.RUnlock()
		if fresh {
			return snap, nil
		}

		data, err := c.loader.Load(ctx)
		if err != nil {
			logger.Warn("{cache - reload} catalog load failed, serving previous snapshot: %v", err)
			if c.OnReload != nil {
				c.OnReload(false)
			}
			return snap, nil
		}

		categories := parser.ParseCatalog(string(data))
		if c.Filter != nil {
			categories = c.Filter.Apply(categories)
		}
		next := &types.CatalogSnapshot{
			Categories: categories,
			LoadedAt:   time.Now(),
		}

		c.mu.Lock()
		c.snapshot = next
		c.loadedAt = next.LoadedAt
		c.mu.Unlock()

		if c.OnReload != nil {
			c.OnReload(true)
		}
		logger.Info("{cache - reload} catalog refreshed: %d categories, %d channels",
			len(next.Categories), next.ChannelCount())
		return next, nil
	})
	return v.(*types.CatalogSnapshot)
}

package cache

import (
	"time"

	"github.com/maypok86/otter/v2"
)

// RenderCache memoizes rendered playlist and search payloads so the
// hot endpoints do not re-serialize the catalog on every request.
// Entries expire on their own shortly after write; InvalidateAll is
// called whenever the catalog itself refreshes.
type RenderCache struct {
	cache *otter.Cache[string, []byte]
}

// NewRenderCache builds a render cache with the given entry TTL.
func NewRenderCache(ttl time.Duration) *RenderCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RenderCache{
		cache: otter.Must(&otter.Options[string, []byte]{
			MaximumSize:      256,
			ExpiryCalculator: otter.ExpiryWriting[string, []byte](ttl),
		}),
	}
}

// Get returns the cached payload for key, if present.
func (r *RenderCache) Get(key string) ([]byte, bool) {
	v, ok := r.cache.GetIfPresent(key)
	return v, ok
}

// Set stores a rendered payload under key.
func (r *RenderCache) Set(key string, payload []byte) {
	r.cache.Set(key, payload)
}

// InvalidateAll drops every rendered payload.
func (r *RenderCache) InvalidateAll() {
	r.cache.InvalidateAll()
}

package palette

import (
	"github.com/patrickmn/go-cache"
)

// Cache stores extracted palettes by image URI.
type Cache interface {
	Get(uri string) (Palette, bool)
	Set(uri string, p Palette)
}

// MemoryCache is an in-process cache whose entries never expire. The key
// space is bounded by the distinct covers seen in one session.
type MemoryCache struct {
	c *cache.Cache
}

// NewMemoryCache creates an empty never-expiring cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryCache) Get(uri string) (Palette, bool) {
	if x, found := m.c.Get(uri); found {
		return x.(Palette), true
	}
	return Palette{}, false
}

func (m *MemoryCache) Set(uri string, p Palette) {
	m.c.Set(uri, p, cache.NoExpiration)
}

// Len returns the number of cached palettes.
func (m *MemoryCache) Len() int {
	return m.c.ItemCount()
}

// Clear drops every cached palette.
func (m *MemoryCache) Clear() {
	m.c.Flush()
}

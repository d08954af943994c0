package palette

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/metcalfc/narr/internal/logging"
)

// Extractor turns cover sources into palettes, caching results by URI.
// It is safe for concurrent use; concurrent requests for the same
// uncached URI share one load.
type Extractor struct {
	loader Loader
	cache  Cache
	group  singleflight.Group
}

// NewExtractor creates an extractor. A nil cache gets a MemoryCache.
func NewExtractor(loader Loader, c Cache) *Extractor {
	if c == nil {
		c = NewMemoryCache()
	}
	return &Extractor{loader: loader, cache: c}
}

// Extract returns the palette for src. Unresolvable sources and any load
// or decode failure produce Fallback; failures are not cached.
func (e *Extractor) Extract(ctx context.Context, src Source) Palette {
	if src == nil {
		return Fallback
	}
	uri, ok := src.Resolve()
	if !ok {
		return Fallback
	}

	if p, ok := e.cache.Get(uri); ok {
		return p
	}

	v, err, _ := e.group.Do(uri, func() (any, error) {
		if p, ok := e.cache.Get(uri); ok {
			return p, nil
		}
		pix, err := e.loader.Pixels(ctx, uri)
		if err != nil {
			return nil, err
		}
		p := Analyze(pix)
		e.cache.Set(uri, p)
		logging.Debug("Extracted cover palette", "uri", uri, "primary", p.Primary, "accent", p.Accent)
		return p, nil
	})
	if err != nil {
		logging.Warn("Palette extraction failed", "uri", uri, "error", err)
		return Fallback
	}
	return v.(Palette)
}

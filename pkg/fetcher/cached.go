package fetcher

import (
	"context"
	"log/slog"

	"github.com/dtnitsch/notion-corpus/pkg/caching"
)

// Cached serves pages from a file cache and fills it from an inner fetcher.
type Cached struct {
	inner  PageFetcher
	cache  *caching.Cache
	logger *slog.Logger
}

// NewCached wraps inner with cache.
func NewCached(inner PageFetcher, cache *caching.Cache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, cache: cache, logger: logger}
}

// Fetch returns the cached page when fresh; otherwise it fetches and stores it.
// A failed cache write is logged and does not fail the fetch.
func (c *Cached) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := c.cache.Get(url); ok {
		c.logger.Debug("Page cache hit", "url", url)
		return data, nil
	}
	data, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(url, data); err != nil {
		c.logger.Warn("Failed to cache page", "url", url, "error", err)
	}
	return data, nil
}

package search

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider memoises successful searches per normalised query.
// Errors are never cached, so a transient outage does not stick.
type CachedProvider struct {
	inner Provider
	cache *cache.Cache
}

// Cached wraps p with a cache whose entries live for ttl.
func Cached(p Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: p,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) Search(ctx context.Context, query string) ([]Candidate, error) {
	key := normalizeQuery(query)
	if key == "" {
		return nil, ErrEmptyQuery
	}

	if x, found := c.cache.Get(key); found {
		return slices.Clone(x.([]Candidate)), nil
	}

	results, err := c.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, slices.Clone(results), cache.DefaultExpiration)
	return results, nil
}

// Len reports the number of cached queries.
func (c *CachedProvider) Len() int {
	return c.cache.ItemCount()
}

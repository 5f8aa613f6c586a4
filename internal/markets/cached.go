package markets

import (
	"context"
	"time"

	"github.com/quantfade/longshot/pkg/cache"
	"github.com/quantfade/longshot/pkg/types"
)

// CachedClient wraps a Client with a metadata cache. Longshot tickers
// print many trades in a burst; one REST lookup per ticker per TTL is
// plenty.
type CachedClient struct {
	client *Client
	cache  cache.MetadataCache
	ttl    time.Duration
}

// NewCachedClient creates a caching wrapper.
func NewCachedClient(client *Client, metadataCache cache.MetadataCache, ttl time.Duration) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  metadataCache,
		ttl:    ttl,
	}
}

// Lookup serves from cache when possible, otherwise fetches and caches.
func (c *CachedClient) Lookup(ctx context.Context, ticker string) (types.MarketMetadata, error) {
	if meta, found := c.cache.Get(ticker); found {
		return meta, nil
	}

	meta, err := c.client.Lookup(ctx, ticker)
	if err != nil {
		return types.MarketMetadata{}, err
	}

	c.cache.Set(ticker, meta, c.ttl)

	return meta, nil
}

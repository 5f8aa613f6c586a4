package cache

import (
	"time"

	"github.com/quantfade/longshot/pkg/types"
)

// MetadataCache caches market metadata lookups so the filter does not
// hammer the exchange REST API for tickers that trade repeatedly.
type MetadataCache interface {
	// Get retrieves cached metadata for a ticker.
	// Returns (meta, true) if found, (zero, false) if not found.
	Get(ticker string) (types.MarketMetadata, bool)

	// Set stores metadata for a ticker with a TTL.
	Set(ticker string, meta types.MarketMetadata, ttl time.Duration) bool

	// Delete removes a ticker from the cache.
	Delete(ticker string)

	// Clear removes all entries.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}

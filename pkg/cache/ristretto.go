package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// RistrettoCache is a MetadataCache backed by Ristretto.
type RistrettoCache struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds configuration for the Ristretto cache.
type RistrettoConfig struct {
	NumCounters int64 // Number of keys to track frequency (10x max items)
	MaxCost     int64 // Maximum number of cached entries
	BufferItems int64 // Number of keys per Get buffer
	Logger      *zap.Logger
}

// NewRistrettoCache creates a new Ristretto-backed metadata cache.
func NewRistrettoCache(cfg *RistrettoConfig) (MetadataCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get retrieves cached metadata for a ticker.
func (r *RistrettoCache) Get(ticker string) (types.MarketMetadata, bool) {
	value, found := r.cache.Get(ticker)
	if !found {
		CacheMissesTotal.Inc()
		r.logger.Debug("cache-miss", zap.String("ticker", ticker))
		return types.MarketMetadata{}, false
	}

	meta, ok := value.(types.MarketMetadata)
	if !ok {
		CacheMissesTotal.Inc()
		r.logger.Warn("cache-invalid-entry", zap.String("ticker", ticker))
		r.cache.Del(ticker)
		return types.MarketMetadata{}, false
	}

	CacheHitsTotal.Inc()
	r.logger.Debug("cache-hit", zap.String("ticker", ticker))
	return meta, true
}

// Set stores metadata for a ticker with a TTL.
func (r *RistrettoCache) Set(ticker string, meta types.MarketMetadata, ttl time.Duration) bool {
	// Cost = 1 (counting entries, not bytes)
	success := r.cache.SetWithTTL(ticker, meta, 1, ttl)
	if success {
		CacheSetsTotal.Inc()
		r.logger.Debug("cache-set",
			zap.String("ticker", ticker),
			zap.Duration("ttl", ttl))
	}
	return success
}

// Delete removes a ticker from the cache.
func (r *RistrettoCache) Delete(ticker string) {
	r.cache.Del(ticker)
	CacheDeletesTotal.Inc()
	r.logger.Debug("cache-delete", zap.String("ticker", ticker))
}

// Clear removes all entries.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("cache-cleared")
}

// Close closes the cache and releases resources.
func (r *RistrettoCache) Close() {
	r.cache.Close()
	r.logger.Info("cache-closed")
}

// Wait blocks until all pending writes have been applied.
// Useful in tests that read immediately after a Set.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}

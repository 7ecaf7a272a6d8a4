package data

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// MemoryCache is an in-memory candle cache. It hands out copies so callers
// can never mutate a cached series.
type MemoryCache struct {
	mu    sync.RWMutex
	cache map[string][]types.Candle
}

// NewMemoryCache creates an empty in-memory candle cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{cache: make(map[string][]types.Candle)}
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) ([]types.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	out := make([]types.Candle, len(cached))
	copy(out, cached)
	return out, true
}

// Set implements Cache.
func (c *MemoryCache) Set(key string, candles []types.Candle) {
	stored := make([]types.Candle, len(candles))
	copy(stored, candles)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = stored
}

// Clear implements Cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]types.Candle)
}

// Len implements Cache.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// CachedProvider wraps a Provider with source-keyed memoization, so repeated
// optimizer passes over the same records hit disk or the network once.
type CachedProvider struct {
	provider Provider
	cache    Cache
	log      zerolog.Logger
}

// NewCachedProvider wraps a provider with an in-memory cache.
func NewCachedProvider(provider Provider, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{provider: provider, cache: NewMemoryCache(), log: log}
}

// Name implements Provider.
func (p *CachedProvider) Name() string {
	return "cached " + p.provider.Name()
}

// LoadCandles implements Provider.
func (p *CachedProvider) LoadCandles(ctx context.Context, source string) ([]types.Candle, error) {
	if cached, ok := p.cache.Get(source); ok {
		return cached, nil
	}
	candles, err := p.provider.LoadCandles(ctx, source)
	if err != nil {
		return nil, err
	}
	p.cache.Set(source, candles)
	p.log.Debug().Str("source", source).Int("candles", len(candles)).Msg("cached candle series")
	return candles, nil
}

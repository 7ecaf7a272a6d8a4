package backtest

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/config"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// cacheEntry is created on miss and deleted on expiry or eviction, never
// mutated in place.
type cacheEntry struct {
	key      string
	result   *SimulationResult
	storedAt time.Time
	ttl      time.Duration
}

// ResultCache memoizes simulation results keyed by content hashes of the
// strategy identity and the data-window identity. Eviction is true LRU: both
// Get and Set refresh a key's recency. Expired entries are evicted silently
// on Get.
//
// The cache tolerates two callers racing to compute the same missing key:
// simulation results are deterministic, so the last Set simply overwrites an
// identical value.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	now      func() time.Time
}

// NewResultCache creates a cache holding at most capacity entries, each
// expiring ttl after its Set.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// GenerateCacheKey derives the cache key for one (strategy, data window)
// pair. The two identity hashes are independent, so the same strategy over
// different windows, or different strategies over the same window, never
// collide.
func GenerateCacheKey(strategy *config.StrategyConfig, window types.DataWindow) string {
	var sb strings.Builder
	sb.WriteString(strategy.Name)
	for _, leg := range strategy.ProfitTargets {
		fmt.Fprintf(&sb, "|%.8f:%.8f", leg.Target, leg.Percent)
	}
	strategyHash := sha256.Sum256([]byte(sb.String()))

	windowID := fmt.Sprintf("%s|%d|%d|%d",
		window.Token, window.Start.Unix(), window.End.Unix(), window.CandleCount)
	windowHash := sha256.Sum256([]byte(windowID))

	return hex.EncodeToString(strategyHash[:16]) + ":" + hex.EncodeToString(windowHash[:16])
}

// Get returns the cached result, or nil on miss. An entry past its TTL is
// removed and reported as a miss.
func (c *ResultCache) Get(key string) *SimulationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > entry.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil
	}
	c.order.MoveToFront(elem)
	return entry.result
}

// Set stores a result, evicting the least-recently-touched entry when at
// capacity.
func (c *ResultCache) Set(key string, result *SimulationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value = &cacheEntry{key: key, result: result, storedAt: c.now(), ttl: c.ttl}
		c.order.MoveToFront(elem)
		return
	}
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	elem := c.order.PushFront(&cacheEntry{key: key, result: result, storedAt: c.now(), ttl: c.ttl})
	c.entries[key] = elem
}

// Len reports the number of live entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

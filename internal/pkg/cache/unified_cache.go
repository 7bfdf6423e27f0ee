package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheMetrics tracks cache performance.
type CacheMetrics struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
}

// UnifiedCache is a generic TTL cache safe for concurrent access.
// Writes are last-writer-wins on key collision.
type UnifiedCache[T any] struct {
	mu      sync.RWMutex
	items   map[string]cacheEntry[T]
	ttl     time.Duration
	name    string // for logging/debugging
	metrics CacheMetrics
	logger  *zap.Logger
}

type cacheEntry[T any] struct {
	value      T
	expiration int64
}

// NewUnifiedCache creates a new generic cache with the given TTL and name.
func NewUnifiedCache[T any](ttl time.Duration, name string, logger *zap.Logger) *UnifiedCache[T] {
	c := newUnifiedCache[T](ttl, name, logger)
	go c.janitor()
	return c
}

// newUnifiedCache builds the cache without the background janitor;
// expiry is then enforced only by Get and explicit Cleanup calls.
func newUnifiedCache[T any](ttl time.Duration, name string, logger *zap.Logger) *UnifiedCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnifiedCache[T]{
		items:  make(map[string]cacheEntry[T]),
		ttl:    ttl,
		name:   name,
		logger: logger,
	}
}

// Set stores an item in the cache with the given key.
func (c *UnifiedCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheEntry[T]{
		value:      value,
		expiration: time.Now().Add(c.ttl).UnixNano(),
	}
	c.metrics.Sets++

	c.logger.Debug("Cache set",
		zap.String("cache", c.name),
		zap.String("key", key),
		zap.Duration("ttl", c.ttl),
	)
}

// Get retrieves an item from the cache.
func (c *UnifiedCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		c.metrics.Misses++
		var zero T
		return zero, false
	}

	if time.Now().UnixNano() > item.expiration {
		c.metrics.Misses++
		var zero T
		c.logger.Debug("Cache expired",
			zap.String("cache", c.name),
			zap.String("key", key),
		)
		return zero, false
	}

	c.metrics.Hits++
	return item.value, true
}

// Delete removes an item from the cache.
func (c *UnifiedCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache.
func (c *UnifiedCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheEntry[T])
	c.logger.Info("Cache cleared", zap.String("cache", c.name))
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *UnifiedCache[T]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	expired := 0
	for key, item := range c.items {
		if now > item.expiration {
			delete(c.items, key)
			expired++
		}
	}
	c.metrics.Evictions += int64(expired)

	if expired > 0 {
		c.logger.Info("Cache cleanup",
			zap.String("cache", c.name),
			zap.Int("expired_items", expired),
			zap.Int("remaining_items", len(c.items)),
		)
	}
	return expired
}

// GetMetrics returns current cache metrics.
func (c *UnifiedCache[T]) GetMetrics() CacheMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

// Size returns the number of items in the cache.
func (c *UnifiedCache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// janitor runs cleanup twice per TTL period.
func (c *UnifiedCache[T]) janitor() {
	ticker := time.NewTicker(c.ttl / 2)
	defer ticker.Stop()

	for range ticker.C {
		c.Cleanup()
	}
}

// CacheKeyBuilder builds deterministic cache keys from the preference
// fields that define a generation run.
type CacheKeyBuilder struct {
	components []interface{}
	logger     *zap.Logger
}

// NewCacheKeyBuilder creates a new cache key builder.
func NewCacheKeyBuilder(logger *zap.Logger) *CacheKeyBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheKeyBuilder{
		components: make([]interface{}, 0, 8),
		logger:     logger,
	}
}

// Add adds a named component to the cache key.
func (b *CacheKeyBuilder) Add(key string, value interface{}) *CacheKeyBuilder {
	b.components = append(b.components, map[string]interface{}{key: value})
	return b
}

// AddDestination adds the primary destination to the cache key.
func (b *CacheKeyBuilder) AddDestination(dest string) *CacheKeyBuilder {
	return b.Add("destination", dest)
}

// AddDateRange adds the travel window to the cache key.
func (b *CacheKeyBuilder) AddDateRange(start, end time.Time) *CacheKeyBuilder {
	return b.Add("start", start.Format("2006-01-02")).Add("end", end.Format("2006-01-02"))
}

// AddTravelers adds the traveler count to the cache key.
func (b *CacheKeyBuilder) AddTravelers(n int) *CacheKeyBuilder {
	return b.Add("travelers", n)
}

// AddBudget adds the budget range to the cache key.
func (b *CacheKeyBuilder) AddBudget(min, max *float64) *CacheKeyBuilder {
	return b.Add("budget_min", min).Add("budget_max", max)
}

// AddInterests adds interests to the cache key in sorted order so the
// key is independent of input ordering.
func (b *CacheKeyBuilder) AddInterests(interests []string) *CacheKeyBuilder {
	sorted := append([]string(nil), interests...)
	sort.Strings(sorted)
	return b.Add("interests", sorted)
}

// AddAccommodation adds the accommodation type to the cache key.
func (b *CacheKeyBuilder) AddAccommodation(kind string) *CacheKeyBuilder {
	return b.Add("accommodation", kind)
}

// AddTransport adds the transport preference to the cache key.
func (b *CacheKeyBuilder) AddTransport(mode string) *CacheKeyBuilder {
	return b.Add("transport", mode)
}

// Build generates the final cache key as an MD5 hash of the JSON
// marshalled components.
func (b *CacheKeyBuilder) Build() (string, error) {
	jsonBytes, err := json.Marshal(b.components)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key components: %w", err)
	}

	hash := md5.Sum(jsonBytes)
	key := hex.EncodeToString(hash[:])

	b.logger.Debug("Cache key built",
		zap.String("key", key),
		zap.String("components", string(jsonBytes)),
	)

	return key, nil
}

// BuildOrDefault builds the cache key, returning an empty string on error.
func (b *CacheKeyBuilder) BuildOrDefault() string {
	key, err := b.Build()
	if err != nil {
		b.logger.Error("Failed to build cache key", zap.Error(err))
		return ""
	}
	return key
}

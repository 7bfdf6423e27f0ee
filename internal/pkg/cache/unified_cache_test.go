package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := NewUnifiedCache[string](time.Minute, "test", nil)

	c.Set("k1", "hello")
	got, found := c.Get("k1")
	require.True(t, found)
	assert.Equal(t, "hello", got)

	_, found = c.Get("absent")
	assert.False(t, found)
}

func TestCacheExpiry(t *testing.T) {
	c := NewUnifiedCache[int](10*time.Millisecond, "test", nil)

	c.Set("k", 42)
	time.Sleep(25 * time.Millisecond)

	_, found := c.Get("k")
	assert.False(t, found, "entries past their TTL must not be served")
}

func TestCacheCleanup(t *testing.T) {
	// No janitor: Cleanup itself must find and evict the expired entries.
	c := newUnifiedCache[int](10*time.Millisecond, "test", nil)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(25 * time.Millisecond)
	c.Set("c", 3)

	evicted := c.Cleanup()
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, c.Size())
}

func TestCacheMetrics(t *testing.T) {
	c := NewUnifiedCache[string](time.Minute, "test", nil)

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.Sets)
	assert.Equal(t, int64(2), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewUnifiedCache[string](time.Minute, "test", nil)

	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	_, found := c.Get("a")
	assert.False(t, found)

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheKeyBuilderDeterministic(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	min, max := 500.0, 2000.0

	build := func(interests []string) string {
		return NewCacheKeyBuilder(nil).
			AddDestination("Paris").
			AddDateRange(start, end).
			AddTravelers(2).
			AddBudget(&min, &max).
			AddInterests(interests).
			BuildOrDefault()
	}

	first := build([]string{"art", "food"})
	second := build([]string{"food", "art"})
	assert.Equal(t, first, second, "interest order must not change the key")

	different := build([]string{"hiking"})
	assert.NotEqual(t, first, different)
}

func TestCacheKeyBuilderDistinguishesInputs(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	a := NewCacheKeyBuilder(nil).AddDestination("Paris").AddDateRange(start, start.AddDate(0, 0, 3)).AddTravelers(2).BuildOrDefault()
	b := NewCacheKeyBuilder(nil).AddDestination("Paris").AddDateRange(start, start.AddDate(0, 0, 3)).AddTravelers(4).BuildOrDefault()
	assert.NotEqual(t, a, b)
}

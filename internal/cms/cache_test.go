package cms

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheSweepsExpiredEntriesOnWrite(t *testing.T) {
	t.Parallel()

	cache := NewCache[int](WithSweepInterval(time.Minute))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		cache.Set(fmt.Sprintf("junk-%d", i), i, time.Hour, ModelTag("page"))
	}
	cache.Set("pinned", 1, 0, "pinned")
	require.Equal(t, 101, cache.Len())

	now = now.Add(2 * time.Hour)
	cache.Set("fresh", 2, time.Hour)

	require.Equal(t, 2, cache.Len())
	_, ok := cache.Get("pinned")
	require.True(t, ok)
	require.Equal(t, 0, cache.InvalidateTags(ModelTag("page")))
}

func TestCacheSweep(t *testing.T) {
	t.Parallel()

	cache := NewCache[string]()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("a", "a", time.Second)
	cache.Set("b", "b", time.Minute)
	now = now.Add(2 * time.Second)

	require.Equal(t, 1, cache.Sweep())
	require.Equal(t, 1, cache.Len())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := NewCache[int](WithMaxEntries(3))
	cache.Set("a", 1, 0, "t")
	cache.Set("b", 2, 0)
	cache.Set("c", 3, 0)

	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Set("d", 4, 0)
	require.Equal(t, 3, cache.Len())
	_, ok = cache.Get("b")
	require.False(t, ok, "least recently used entry is evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := cache.Get(key)
		require.True(t, ok, key)
	}

	cache.Set("a", 10, 0)
	require.Equal(t, 3, cache.Len(), "overwriting does not evict")
	require.Equal(t, 0, cache.InvalidateTags("t"), "overwrite drops the old tags")
}

func TestCacheEvictionPrefersExpiredEntries(t *testing.T) {
	t.Parallel()

	cache := NewCache[int](WithMaxEntries(2), WithSweepInterval(time.Hour))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("old", 1, 0)
	cache.Set("short", 2, time.Second)
	now = now.Add(time.Minute)
	cache.Set("new", 3, 0)

	_, ok := cache.Get("old")
	require.True(t, ok)
	_, ok = cache.Get("new")
	require.True(t, ok)
	require.Equal(t, 2, cache.Len())
}

func TestCacheGetFreshRespectsAge(t *testing.T) {
	t.Parallel()

	cache := NewCache[int]()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("k", 1, time.Hour)
	now = now.Add(10 * time.Second)

	_, ok := cache.GetFresh("k", 5*time.Second)
	require.False(t, ok)
	v, ok := cache.Get("k")
	require.True(t, ok, "older entry stays for the longer window")
	require.Equal(t, 1, v)
	v, ok = cache.GetFresh("k", 30*time.Second)
	require.True(t, ok)
	require.Equal(t, 1, v)
}

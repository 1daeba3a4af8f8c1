package cms

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxEntries    = 4096
	defaultSweepInterval = time.Minute
)

// CacheKey builds the lookup key for a single content entry.
func CacheKey(model, urlPath, locale string) string {
	return strings.Join([]string{model, locale, urlPath}, "|")
}

// ModelTag is attached to every cached entry of the model so a whole model
// can be invalidated at once.
func ModelTag(model string) string {
	return "model:" + model
}

// Cache stores values with an optional expiry and a set of invalidation tags.
// It holds at most maxEntries values; the least recently used entry is
// evicted first, and expired entries are swept on writes.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	order   *list.List
	tags    map[string]map[string]struct{}
	now     func() time.Time

	maxEntries    int
	sweepInterval time.Duration
	lastSweep     time.Time
}

type cacheEntry[V any] struct {
	key     string
	value   V
	stored  time.Time
	expires time.Time
	tags    []string
	elem    *list.Element
}

// CacheOption customises a Cache.
type CacheOption func(*cacheSettings)

type cacheSettings struct {
	maxEntries    int
	sweepInterval time.Duration
}

// WithMaxEntries bounds the number of stored entries. Values below one use the default.
func WithMaxEntries(n int) CacheOption {
	return func(s *cacheSettings) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithSweepInterval sets how often a write scans for expired entries.
func WithSweepInterval(d time.Duration) CacheOption {
	return func(s *cacheSettings) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// NewCache returns an empty cache.
func NewCache[V any](opts ...CacheOption) *Cache[V] {
	settings := cacheSettings{maxEntries: defaultMaxEntries, sweepInterval: defaultSweepInterval}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Cache[V]{
		entries:       map[string]*cacheEntry[V]{},
		order:         list.New(),
		tags:          map[string]map[string]struct{}{},
		now:           time.Now,
		maxEntries:    settings.maxEntries,
		sweepInterval: settings.sweepInterval,
	}
}

// Get returns the live value for key. Expired entries are dropped.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.get(key, 0)
}

// GetFresh is Get for entries stored no longer than maxAge ago. An older
// entry is reported missing but kept for readers with a longer window.
func (c *Cache[V]) GetFresh(key string, maxAge time.Duration) (V, bool) {
	return c.get(key, maxAge)
}

func (c *Cache[V]) get(key string, maxAge time.Duration) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	if entry.expired(now) {
		c.removeLocked(key)
		return zero, false
	}
	if maxAge > 0 && now.Sub(entry.stored) > maxAge {
		return zero, false
	}
	c.order.MoveToBack(entry.elem)
	return entry.value, true
}

// Set stores value under key. A zero ttl keeps the entry until one of its
// tags or the key itself is invalidated, or until it is evicted.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.removeLocked(key)
	if now.Sub(c.lastSweep) >= c.sweepInterval {
		c.sweepLocked(now)
	}
	if len(c.entries) >= c.maxEntries {
		c.sweepLocked(now)
		for len(c.entries) >= c.maxEntries {
			oldest := c.order.Front()
			if oldest == nil {
				break
			}
			c.removeLocked(oldest.Value.(string))
		}
	}

	entry := &cacheEntry[V]{key: key, value: value, stored: now, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}
	entry.elem = c.order.PushBack(key)
	c.entries[key] = entry
	for _, tag := range entry.tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = map[string]struct{}{}
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Invalidate removes a single key.
func (c *Cache[V]) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(key)
}

// InvalidateTags removes every entry carrying any of the tags and returns the
// number of entries removed.
func (c *Cache[V]) InvalidateTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for _, tag := range tags {
		for key := range c.tags[tag] {
			if c.removeLocked(key) {
				removed++
			}
		}
		delete(c.tags, tag)
	}
	return removed
}

// Len reports the number of stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) sweepLocked(now time.Time) int {
	c.lastSweep = now
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) && c.removeLocked(key) {
			removed++
		}
	}
	return removed
}

func (c *Cache[V]) removeLocked(key string) bool {
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.order.Remove(entry.elem)
	for _, tag := range entry.tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
	return true
}

func (e *cacheEntry[V]) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Package cache provides a generic, thread-safe LRU cache with optional
// entry expiry, used to keep validation reports for repeated messages.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a generic thread-safe LRU cache with built-in metrics.
// Entries older than the TTL are treated as missing.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*entry[K, V]
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time

	// Metrics (lock-free using atomics)
	hits    atomic.Uint64
	misses  atomic.Uint64
	evicts  atomic.Uint64
	expires atomic.Uint64
	sets    atomic.Uint64
}

// entry holds a cached value and its position in the LRU list.
type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
	element  *list.Element
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires entries ttl after they were stored. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New creates a new Cache with the specified capacity.
// When the cache is full, the least recently used item is evicted.
func New[K comparable, V any](capacity int, opts ...Option) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 100
	}
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[K, V]{
		items:    make(map[K]*entry[K, V], capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      cfg.ttl,
		now:      cfg.now,
	}
}

// Get retrieves a value from the cache.
// Returns the value and true if found and not expired, zero value and false
// otherwise. Accessing an item moves it to the front of the LRU list.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if ok && c.expired(e) {
		c.remove(e)
		c.expires.Add(1)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set adds or updates a value in the cache.
// If the cache is at capacity, the least recently used item is evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	c.sets.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.storedAt = c.now()
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	element := c.order.PushFront(key)
	c.items[key] = &entry[K, V]{
		key:      key,
		value:    value,
		storedAt: c.now(),
		element:  element,
	}
}

// expired reports whether e is past the TTL. Must be called with mu held.
func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

// remove deletes e. Must be called with mu held.
func (c *Cache[K, V]) remove(e *entry[K, V]) {
	delete(c.items, e.key)
	c.order.Remove(e.element)
}

// evictOldest removes the least recently used item.
// Must be called with mu held.
func (c *Cache[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.remove(c.items[oldest.Value.(K)])
	c.evicts.Add(1)
}

// Delete removes an item from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Purge removes all expired entries and returns how many were removed.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.items {
		if c.expired(e) {
			c.remove(e)
			n++
		}
	}
	c.expires.Add(uint64(n)) //nolint:gosec // Safe: n is non-negative
	return n
}

// Len returns the current number of items in the cache, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all items from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*entry[K, V], c.capacity)
	c.order.Init()
}

// Stats holds cache statistics.
type Stats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	Evicts   uint64
	Expires  uint64
	Sets     uint64
	HitRate  float64
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	size := c.Len()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Evicts:   c.evicts.Load(),
		Expires:  c.expires.Load(),
		Sets:     c.sets.Load(),
		HitRate:  hitRate,
	}
}

// Key derives a fixed-size cache key from parts, such as a message text and
// a profile OID. Parts are length-prefixed so ("ab", "c") and ("a", "bc")
// yield different keys.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

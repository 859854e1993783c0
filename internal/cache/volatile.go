// Package cache provides the in-memory, session-scoped result cache.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the volatile cache when no size is given
const DefaultMaxEntries = 512

type item[V any] struct {
	value      V
	capturedAt time.Time
	expiresAt  time.Time
}

// Volatile is a TTL cache held in process memory and lost on restart.
// Entries are bounded by an LRU so abandoned daily keys are eventually evicted.
type Volatile[V any] struct {
	entries *lru.Cache[string, item[V]]
	now     func() time.Time
}

// NewVolatile creates a cache holding at most maxEntries items
func NewVolatile[V any](maxEntries int) *Volatile[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, item[V]](maxEntries)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return &Volatile[V]{entries: entries, now: time.Now}
}

// WithClock overrides the time source
func (c *Volatile[V]) WithClock(now func() time.Time) *Volatile[V] {
	c.now = now
	return c
}

// Get returns the value for key if present and not expired
func (c *Volatile[V]) Get(key string) (V, bool) {
	v, _, ok := c.GetWithTime(key)
	return v, ok
}

// GetWithTime returns the value and the time it was stored
func (c *Volatile[V]) GetWithTime(key string) (V, time.Time, bool) {
	var zero V
	it, ok := c.entries.Get(key)
	if !ok {
		return zero, time.Time{}, false
	}
	if c.now().After(it.expiresAt) {
		c.entries.Remove(key)
		return zero, time.Time{}, false
	}
	return it.value, it.capturedAt, true
}

// Set stores value for ttl
func (c *Volatile[V]) Set(key string, value V, ttl time.Duration) {
	now := c.now()
	c.entries.Add(key, item[V]{value: value, capturedAt: now, expiresAt: now.Add(ttl)})
}

// Delete removes key
func (c *Volatile[V]) Delete(key string) {
	c.entries.Remove(key)
}

// Len reports the number of held entries, expired or not
func (c *Volatile[V]) Len() int {
	return c.entries.Len()
}

// Purge removes every entry
func (c *Volatile[V]) Purge() {
	c.entries.Purge()
}

// DailyKey namespaces key by the calendar date of now, so entries rotate once per day
func DailyKey(key string, now time.Time) string {
	return key + ":" + now.Format("2006-01-02")
}

// DailyKey namespaces key by the cache clock's current date
func (c *Volatile[V]) DailyKey(key string) string {
	return DailyKey(key, c.now())
}

// Package cache implements the read-through result cache that honors cache
// directives attached to materialized queries.
//
// Read operations check the cache first; a hit returns the stored result, a
// miss executes against the database and stores the result under the
// rendered statement's key for the directive's TTL. Write paths never go
// through here.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Cache is a TTL-bounded in-memory result cache. Safe for concurrent reads
// and writes; expired entries are dropped lazily on access.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value   any
	expires time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock returns a cache using a custom clock, for tests.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Get returns the live value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl. Non-positive TTLs are ignored.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key derives a cache key from a rendered statement and its arguments. The
// method name distinguishes result shapes (rows vs count) for otherwise
// identical SQL.
func Key(method, sql string, args []any) string {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s", method, sql)
	for _, a := range args {
		_, _ = fmt.Fprintf(h, "|%v", a)
	}
	return fmt.Sprintf("%s:%x", method, h.Sum64())
}

package backend

import (
	"encoding/json"
	"sync"
	"time"
)

// Cache keeps decoded-ready response payloads keyed by request path. Every
// entry is labelled with tags so mutations can drop whole resource families.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	data    json.RawMessage
	tags    []string
	expires time.Time
}

// NewCache returns a cache whose entries live for ttl. A non-positive ttl
// disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (json.RawMessage, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

func (c *Cache) Set(key string, data json.RawMessage, tags ...string) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		data:    data,
		tags:    tags,
		expires: c.now().Add(c.ttl),
	}
}

// Invalidate drops every entry carrying any of the given tags and returns how
// many entries were removed.
func (c *Cache) Invalidate(tags ...string) int {
	if c == nil || len(tags) == 0 {
		return 0
	}

	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[tag] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		for _, tag := range entry.tags {
			if _, ok := wanted[tag]; ok {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}

func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package cache

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value  string
	stored time.Time
}

// InMemoryCache is a thread-safe in-memory cache with optional TTL and
// size bound. When full, the oldest entry is evicted.
type InMemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewInMemoryCache creates an in-memory cache. A ttl of zero disables
// expiry and a maxEntries of zero disables eviction.
func NewInMemoryCache(ttl time.Duration, maxEntries int) *InMemoryCache {
	if ttl < 0 {
		ttl = 0
	}
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &InMemoryCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached translation for key.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if c.expired(entry) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return entry.value, true
}

// Set stores a translation.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{value: value, stored: c.now()}
	return nil
}

// Delete removes key.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Entries returns the live entries.
func (c *InMemoryCache) Entries() (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.entries))
	for key, entry := range c.entries {
		if !c.expired(entry) {
			out[key] = entry.value
		}
	}
	return out, nil
}

func (c *InMemoryCache) expired(e cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.stored) > c.ttl
}

// evictLocked drops expired entries, or the oldest one if none expired.
func (c *InMemoryCache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	dropped := false
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			dropped = true
			continue
		}
		if oldestKey == "" || entry.stored.Before(oldest) {
			oldestKey, oldest = key, entry.stored
		}
	}
	if !dropped && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

var _ Lister = (*InMemoryCache)(nil)

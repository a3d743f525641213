package accounting

import (
	"strings"
	"sync"
	"time"
)

type cacheItem struct {
	value    interface{}
	cachedAt time.Time
}

// Cache keeps values for a fixed TTL keyed by logical resource name.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a cache. A zero ttl disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]cacheItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put stores value under key.
func (c *Cache) Put(key string, value interface{}) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{value: value, cachedAt: c.now()}
}

// GetCachedOrNull returns the value only while now - cachedAt < ttl; an
// expired entry is evicted.
func (c *Cache) GetCachedOrNull(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil
	}
	if c.now().Sub(item.cachedAt) >= c.ttl {
		delete(c.items, key)
		return nil
	}
	return item.value
}

// Invalidate drops key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Sweep evicts expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := c.now()
	for key, item := range c.items {
		if now.Sub(item.cachedAt) >= c.ttl {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem)
}

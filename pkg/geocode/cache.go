package geocode

import (
	"container/list"
	"sync"
)

// DefaultCacheSize bounds the cache when no size is configured.
const DefaultCacheSize = 10000

type cacheEntry struct {
	key    string
	result Result
}

// Cache is a bounded address->result map safe for concurrent use. When full
// it evicts the oldest tenth of its entries by insertion order, which
// approximates LRU without tracking reads.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List
}

// NewCache creates a cache holding at most maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns a copy of the cached result for address.
func (c *Cache) Get(address string) (*Result, bool) {
	key := normalizeKey(address)
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	r := el.Value.(*cacheEntry).result
	return &r, true
}

// Set stores result for address. Updating an existing key keeps its
// position in the eviction order.
func (c *Cache) Set(address string, result Result) {
	key := normalizeKey(address)
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).result = result
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, result: result})
}

// evictLocked drops the oldest max(1, maxSize/10) entries.
func (c *Cache) evictLocked() {
	n := max(1, c.maxSize/10)
	for i := 0; i < n; i++ {
		front := c.order.Front()
		if front == nil {
			return
		}
		c.order.Remove(front)
		delete(c.entries, front.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// MaxSize returns the configured bound.
func (c *Cache) MaxSize() int { return c.maxSize }

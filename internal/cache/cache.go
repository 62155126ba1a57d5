package cache

import "sync"

// Cache is a thread-safe LRU cache with an optional entry limit.
// Evicted, deleted and cleared entries are passed to the eviction callback.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*lruNode[K, V]
	order   lruList[K, V]
	limit   int
	onEvict func(K, V)
	stats   Stats
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New creates a cache holding at most limit entries. A limit of 0 means
// unlimited. onEvict may be nil.
func New[K comparable, V any](limit int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*lruNode[K, V]),
		limit:   limit,
		onEvict: onEvict,
	}
}

// Get returns the value for key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.order.moveToFront(node)
	return node.value, true
}

// GetOrCreate returns the cached value or calls create and stores its
// result. create runs under the cache lock, so a key is never created
// twice. Errors from create are returned and nothing is stored.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.entries[key]; ok {
		c.stats.Hits++
		c.order.moveToFront(node)
		return node.value, nil
	}
	c.stats.Misses++
	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = c.order.pushFront(key, value)
	c.evictOverLimit()
	return value, nil
}

// Delete removes key, passing its value to the eviction callback.
// It reports whether the key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.unlink(node)
	delete(c.entries, key)
	c.evict(node)
	return true
}

// Clear removes every entry, oldest first.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for node := c.order.removeOldest(); node != nil; node = c.order.removeOldest() {
		delete(c.entries, node.key)
		c.evict(node)
	}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	s.Capacity = c.limit
	return s
}

// evictOverLimit drops least recently used entries. Caller holds c.mu.
func (c *Cache[K, V]) evictOverLimit() {
	if c.limit <= 0 {
		return
	}
	for len(c.entries) > c.limit {
		node := c.order.removeOldest()
		delete(c.entries, node.key)
		c.stats.Evictions++
		c.evict(node)
	}
}

func (c *Cache[K, V]) evict(node *lruNode[K, V]) {
	if c.onEvict != nil {
		c.onEvict(node.key, node.value)
	}
}

package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// LRU is a count-bounded least-recently-used cache.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[K]*list.Element
	evictList *list.List
	pinned    func(V) bool

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates a cache holding at most capacity unpinned entries.
// A capacity <= 0 disables capacity eviction. pinned may be nil.
func NewLRU[K comparable, V any](capacity int, pinned func(V) bool) *LRU[K, V] {
	if pinned == nil {
		pinned = func(V) bool { return false }
	}
	return &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		pinned:    pinned,
	}
}

// Get returns a cached value and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Add caches value under key, replacing an existing value.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry[K, V]).value = value
		return
	}

	element := c.evictList.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = element
	c.evict()
}

// Invalidate removes unpinned entries matching the predicate and returns how many were removed.
func (c *LRU[K, V]) Invalidate(predicate func(key K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) && !c.pinned(element.Value.(*entry[K, V]).value) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
	return len(toRemove)
}

// evict walks from the cold end and drops unpinned entries until the
// unpinned population fits. Callers hold c.mu.
func (c *LRU[K, V]) evict() {
	if c.capacity <= 0 || c.evictList.Len() <= c.capacity {
		return
	}
	excess := c.evictList.Len() - c.capacity
	for e := c.evictList.Back(); e != nil && excess > 0; {
		prev := e.Prev()
		if !c.pinned(e.Value.(*entry[K, V]).value) {
			c.removeElement(e)
			c.evictions.Add(1)
			excess--
		}
		e = prev
	}
}

func (c *LRU[K, V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*entry[K, V]).key)
}

// Len returns the number of cached entries, pinned ones included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns hit, miss and eviction counters.
func (c *LRU[K, V]) Stats() (hits, misses, evictions int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load()
}

// Package lru implements a small bounded LRU cache. It is a generic
// version of github.com/golang/groupcache/lru trimmed to what
// futura.dev/exec needs.
package lru

import "container/list"

// Cache is an LRU cache. It is not safe for concurrent access; callers
// are expected to provide their own locking.
type Cache[K comparable, V any] struct {
	// MaxEntries is the maximum number of entries held before the
	// least recently used one is evicted. Zero means no limit.
	MaxEntries int

	// OnEvicted optionally specifies a callback function to be
	// executed when an entry is dropped from the cache.
	OnEvicted func(key K, value V)

	order   *list.List
	entries map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a new Cache holding at most maxEntries entries.
// If maxEntries is zero, the cache is unbounded.
func New[K comparable, V any](maxEntries int) *Cache[K, V] {
	return &Cache[K, V]{
		MaxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[K]*list.Element),
	}
}

// Add adds a value to the cache, evicting the oldest entry if the
// cache is full.
func (c *Cache[K, V]) Add(key K, value V) {
	if c.entries == nil {
		c.entries = make(map[K]*list.Element)
		c.order = list.New()
	}
	if e, ok := c.entries[key]; ok {
		c.order.MoveToFront(e)
		e.Value.(*entry[K, V]).value = value
		return
	}
	c.entries[key] = c.order.PushFront(&entry[K, V]{key, value})
	if c.MaxEntries != 0 && c.order.Len() > c.MaxEntries {
		c.evict(c.order.Back())
	}
}

// Get looks up a key's value from the cache, marking it as recently
// used on a hit.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	if c.entries == nil {
		return
	}
	if e, ok := c.entries[key]; ok {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	return
}

// Remove removes the provided key from the cache, if present.
func (c *Cache[K, V]) Remove(key K) {
	if c.entries == nil {
		return
	}
	if e, ok := c.entries[key]; ok {
		c.evict(e)
	}
}

func (c *Cache[K, V]) evict(e *list.Element) {
	if e == nil {
		return
	}
	c.order.Remove(e)
	kv := e.Value.(*entry[K, V])
	delete(c.entries, kv.key)
	if c.OnEvicted != nil {
		c.OnEvicted(kv.key, kv.value)
	}
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.order.Len()
}

// Clear drops all entries, invoking OnEvicted for each.
func (c *Cache[K, V]) Clear() {
	if c.OnEvicted != nil {
		for _, e := range c.entries {
			kv := e.Value.(*entry[K, V])
			c.OnEvicted(kv.key, kv.value)
		}
	}
	c.order = nil
	c.entries = nil
}

// Package cache provides a minimal process-scoped keyed cache with
// get-or-load and explicit invalidation semantics. It replaces ad-hoc
// module-level maps: every cached collection has a defined lifecycle
// (lazily populated, overwritten or invalidated on write, never implicitly
// shared across tenants because keys carry the full ownership tuple).
package cache

import "sync"

// Keyed is a concurrency-safe map cache. The zero value is not usable;
// construct with New.
type Keyed[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New returns an empty cache.
func New[K comparable, V any]() *Keyed[K, V] {
	return &Keyed[K, V]{entries: make(map[K]V)}
}

// Get returns the cached value for key.
func (c *Keyed[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrLoad returns the cached value, or runs load and caches its result.
// Concurrent loads for the same key may race; the last writer wins, which
// is acceptable because loads are read-only against the source of truth.
func (c *Keyed[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Set stores a value, replacing any previous entry.
func (c *Keyed[K, V]) Set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Invalidate drops the entry for key. Writers racing with an interleaved
// commit should prefer Invalidate over Set so no stale entry stays visible.
func (c *Keyed[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of cached entries.
func (c *Keyed[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

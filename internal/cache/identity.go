// Package cache holds the per-entity-type identity maps: at most one live
// in-memory instance per primary key. Entries are only removed by explicit
// eviction, so the maps grow with the working set of active entities.
package cache

import "sync"

type Identity[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

func NewIdentity[K comparable, V any]() *Identity[K, V] {
	return &Identity[K, V]{
		entries: make(map[K]V),
	}
}

func (c *Identity[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Identity[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *Identity[K, V]) Evict(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Identity[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrLoad returns the cached instance for key, loading it on a miss.
// load runs without the lock held, so concurrent misses may load twice;
// whichever instance lands first wins and the others are discarded. That
// keeps the single-instance-per-key guarantee without serializing loads.
func (c *Identity[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok {
		return cur, nil
	}
	c.entries[key] = v
	return v, nil
}

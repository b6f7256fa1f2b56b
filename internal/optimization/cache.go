package optimization

import "sync"

// Cache memoizes values per permutation. Entries are keyed by the
// permutation's value, never evicted, and immutable once stored.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]T
	hits    uint64
	misses  uint64
}

// NewCache creates an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]T)}
}

// GetOrCompute returns the cached value for p, or calls compute once, stores
// its result and returns it. The boolean reports whether the value was cached.
// A failing compute stores nothing.
func (c *Cache[T]) GetOrCompute(p Permutation, compute func() (T, error)) (T, bool, error) {
	key := p.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		c.hits++
		return v, true, nil
	}

	c.misses++
	v, err := compute()
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.entries[key] = v
	return v, false, nil
}

// Get returns the cached value for p, if any.
func (c *Cache[T]) Get(p Permutation) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[p.Key()]
	return v, ok
}

// Len returns the number of stored entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the number of hits and misses so far.
func (c *Cache[T]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

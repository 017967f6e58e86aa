package similar

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache holds one computed value per path for the lifetime of a run.
type Cache[V any] struct {
	store  map[string]V
	lock   sync.RWMutex
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewCache returns an empty cache. hits and misses may be nil.
func NewCache[V any](hits, misses prometheus.Counter) *Cache[V] {
	return &Cache[V]{
		store:  make(map[string]V),
		hits:   hits,
		misses: misses,
	}
}

// Get returns the cached value for path, computing and storing it on a miss. Failed
// computations are not cached.
func (c *Cache[V]) Get(path string, compute func() (V, error)) (V, error) {
	c.lock.RLock()
	var v, ok = c.store[path]
	c.lock.RUnlock()

	if ok {
		if c.hits != nil {
			c.hits.Inc()
		}
		return v, nil
	}
	if c.misses != nil {
		c.misses.Inc()
	}

	v, err := compute()
	if err != nil {
		return v, err
	}

	c.lock.Lock()
	c.store[path] = v
	c.lock.Unlock()

	return v, nil
}

// Len returns the number of cached paths.
func (c *Cache[V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return len(c.store)
}

// Reset drops every cached value.
func (c *Cache[V]) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.store = make(map[string]V)
}

package pricefeed

import (
	"sync"
	"time"
)

// Cache holds the most recent asset price with a freshness window. It is
// passed by reference to every consumer that needs pricing; there is no
// package-level cache state.
type Cache struct {
	mu        sync.RWMutex
	price     float64
	updatedAt time.Time
	ttl       time.Duration
}

// NewCache creates a cache whose entries stay fresh for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Set stores a newly observed price.
func (c *Cache) Set(price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = price
	c.updatedAt = time.Now()
}

// Fresh returns the cached price when one exists and is inside the TTL.
func (c *Cache) Fresh() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updatedAt.IsZero() || time.Since(c.updatedAt) > c.ttl {
		return 0, false
	}
	return c.price, true
}

// LastKnown returns the cached price regardless of age. A stale price is
// still the best available answer when every live source is down.
func (c *Cache) LastKnown() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updatedAt.IsZero() {
		return 0, false
	}
	return c.price, true
}

// UpdatedAt reports when the cache was last written.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

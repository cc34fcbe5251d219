package utils

import (
	"sync"
	"time"
)

// Cache holds one value until its TTL elapses.
type Cache[T any] struct {
	value      T
	expiration time.Time
	ttl        time.Duration
	now        func() time.Time
	mutex      sync.RWMutex
}

// NewCache initializes an empty cache whose values live for ttl.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, used by tests.
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.now = now
	return c
}

// Set stores value for the cache TTL.
func (c *Cache[T]) Set(value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.value = value
	c.expiration = c.now().Add(c.ttl)
}

// Get returns the cached value while it is fresh.
func (c *Cache[T]) Get() (T, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if !c.now().Before(c.expiration) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Clear removes the cached value.
func (c *Cache[T]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero T
	c.value = zero
	c.expiration = time.Time{}
}

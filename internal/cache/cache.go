package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed view over an expiring in-memory store.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Delete(key string)
	Flush()
}

type ttlCache[V any] struct {
	store *gocache.Cache
}

// NewTTLCache returns a cache whose entries expire after ttl, swept every cleanup.
func NewTTLCache[V any](ttl, cleanup time.Duration) Cache[V] {
	return &ttlCache[V]{store: gocache.New(ttl, cleanup)}
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, found := c.store.Get(key)
	if !found {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set stores value. A non-positive ttl uses the cache default.
func (c *ttlCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, value, ttl)
}

func (c *ttlCache[V]) Delete(key string) {
	c.store.Delete(key)
}

func (c *ttlCache[V]) Flush() {
	c.store.Flush()
}

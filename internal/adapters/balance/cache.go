// Package balance exposes the per-user balance invalidation hook the
// fan-out engine fires after each delivery, so downstream balance reads
// are fresh.
package balance

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

type Cache struct {
	c *gocache.Cache
}

func New() *Cache {
	return &Cache{c: gocache.New(defaultExpiration, cleanupInterval)}
}

func key(userID string) string { return "balance:" + userID }

// Invalidate drops the cached balance so the next read is fresh.
func (b *Cache) Invalidate(userID string) {
	b.c.Delete(key(userID))
}

package service

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
)

const queryNearestAvailable = "nearest-available"

type cacheKey struct {
	hospitalID int64
	query      string
}

func (k cacheKey) String() string {
	return fmt.Sprintf("proximity:hospital:%d:%s", k.hospitalID, k.query)
}

type cacheEntry struct {
	result model.NearestAmbulances
	limit  int
}

// proximityCache holds ranked results. Each entry carries the TTL in force
// when it was stored. Hits do not extend it.
type proximityCache struct {
	items *ttlcache.Cache[cacheKey, cacheEntry]
}

func newProximityCache() *proximityCache {
	return &proximityCache{
		items: ttlcache.New[cacheKey, cacheEntry](
			ttlcache.WithDisableTouchOnHit[cacheKey, cacheEntry](),
		),
	}
}

func (c *proximityCache) get(key cacheKey) (cacheEntry, bool) {
	item := c.items.Get(key)
	if item == nil {
		return cacheEntry{}, false
	}
	return item.Value(), true
}

func (c *proximityCache) put(key cacheKey, e cacheEntry, ttl time.Duration) {
	c.items.Set(key, e, ttl)
}

func (c *proximityCache) deleteHospital(hospitalID int64) int {
	n := 0
	for _, k := range c.items.Keys() {
		if k.hospitalID == hospitalID {
			c.items.Delete(k)
			n++
		}
	}
	return n
}

func (c *proximityCache) clear() int {
	n := c.items.Len()
	c.items.DeleteAll()
	return n
}

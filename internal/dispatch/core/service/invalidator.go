package service

import (
	"context"
	"sync"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// CacheInvalidator keeps the Ranker's cache in step with ambulance events.
//
// A location event invalidates the hospitals within the catchment radius of
// the new position, unless the ambulance moved less than the threshold. A
// status event invalidates everything.
type CacheInvalidator struct {
	ranker    *Ranker
	hospitals core.HospitalRepository
	settings  *settings
	log       log.Logger

	mu          sync.Mutex
	unsubscribe func()
}

func newCacheInvalidator(ranker *Ranker, hospitals core.HospitalRepository, cfg *settings) *CacheInvalidator {
	return &CacheInvalidator{
		ranker:    ranker,
		hospitals: hospitals,
		settings:  cfg,
		log:       log.WithName("invalidator"),
	}
}

// Attach subscribes to the ambulance topics of bus.
func (c *CacheInvalidator) Attach(bus core.EventSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.unsubscribe = bus.Subscribe(c.Handle, model.TopicAmbulanceLocation, model.TopicAmbulanceStatus)
}

// Detach removes the subscription made by Attach.
func (c *CacheInvalidator) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Handle applies the invalidation policy to one event.
func (c *CacheInvalidator) Handle(ctx context.Context, event *model.Event) {
	switch p := event.Payload.(type) {
	case *model.LocationChanged:
		c.onLocation(ctx, p)
	case *model.StatusChanged:
		n := c.ranker.invalidate(nil, "status")
		c.log.Debug("Proximity cache cleared on status change", log.Ambulance(p.AmbulanceID), "entries", n)
	}
}

func (c *CacheInvalidator) onLocation(ctx context.Context, p *model.LocationChanged) {
	cfg := c.settings.load()
	if p.DistanceMoved == nil || *p.DistanceMoved < cfg.InvalidationThreshold {
		return
	}

	affected, err := c.hospitals.WithinDistance(ctx, p.Location, cfg.CatchmentRadius)
	if err != nil {
		// Stale entries still expire after the TTL.
		c.log.Error(err, "Failed to find hospitals near moved ambulance", log.Ambulance(p.AmbulanceID))
		return
	}

	for _, h := range affected {
		id := h.ID
		c.ranker.invalidate(&id, "location")
	}
	c.log.Debug("Proximity cache invalidated on movement",
		log.Ambulance(p.AmbulanceID),
		"distanceMoved", *p.DistanceMoved,
		"hospitals", len(affected),
	)
}

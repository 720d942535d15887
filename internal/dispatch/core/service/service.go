package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// Tunables are the dispatch heuristics that can change at runtime.
type Tunables struct {
	// TickInterval is the wall-clock cadence of movement simulations.
	TickInterval time.Duration
	// CacheTTL bounds how long a nearest-ambulance result is served from cache.
	CacheTTL time.Duration
	// InvalidationThreshold is the minimum movement in meters that invalidates
	// cached proximity results.
	InvalidationThreshold float64
	// CatchmentRadius in meters selects the hospitals affected by a movement.
	CatchmentRadius float64
	// NominalSpeedKmh converts distance into estimated travel minutes.
	NominalSpeedKmh float64
	// DefaultSpeedKmh is used by callers that start a simulation without a speed.
	DefaultSpeedKmh float64
}

// DefaultTunables returns the values the dispatch core ships with.
func DefaultTunables() Tunables {
	return Tunables{
		TickInterval:          500 * time.Millisecond,
		CacheTTL:              30 * time.Second,
		InvalidationThreshold: 100,
		CatchmentRadius:       10000,
		NominalSpeedKmh:       60,
		DefaultSpeedKmh:       60,
	}
}

// settings shares the live Tunables between components.
type settings struct {
	v atomic.Pointer[Tunables]
}

func newSettings(t Tunables) *settings {
	s := &settings{}
	s.store(t)
	return s
}

func (s *settings) load() Tunables { return *s.v.Load() }

func (s *settings) store(t Tunables) {
	def := DefaultTunables()
	if t.TickInterval <= 0 {
		t.TickInterval = def.TickInterval
	}
	if t.CacheTTL <= 0 {
		t.CacheTTL = def.CacheTTL
	}
	if t.NominalSpeedKmh <= 0 {
		t.NominalSpeedKmh = def.NominalSpeedKmh
	}
	if t.DefaultSpeedKmh <= 0 {
		t.DefaultSpeedKmh = def.DefaultSpeedKmh
	}
	s.v.Store(&t)
}

// Service wires the dispatch use cases together.
type Service struct {
	Registry  *Registry
	Ranker    *Ranker
	Lifecycle *Lifecycle

	hospitals   core.HospitalRepository
	invalidator *CacheInvalidator
	settings    *settings
}

// New creates the dispatch core on top of a storage backend and event bus.
// The proximity cache invalidator is subscribed to bus here.
func New(repo core.Repository, bus core.EventBus, t Tunables) *Service {
	cfg := newSettings(t)

	registry := newRegistry(repo.Ambulance(), repo.Hospital(), bus, cfg)
	ranker := newRanker(repo.Ambulance(), repo.Hospital(), cfg)
	lifecycle := newLifecycle(repo.Request(), repo.Hospital(), registry, bus)

	invalidator := newCacheInvalidator(ranker, repo.Hospital(), cfg)
	invalidator.Attach(bus)

	return &Service{
		Registry:    registry,
		Ranker:      ranker,
		Lifecycle:   lifecycle,
		hospitals:   repo.Hospital(),
		invalidator: invalidator,
		settings:    cfg,
	}
}

// Reload swaps the tunables. Running simulations keep their original cadence.
func (s *Service) Reload(t Tunables) {
	s.settings.store(t)
	log.Info("Dispatch tunables reloaded",
		"tick", t.TickInterval,
		"cacheTTL", t.CacheTTL,
		"threshold", t.InvalidationThreshold,
		"catchment", t.CatchmentRadius,
	)
}

// Tunables returns the values currently in effect.
func (s *Service) Tunables() Tunables {
	return s.settings.load()
}

// Hospital returns a hospital by id.
func (s *Service) Hospital(ctx context.Context, id int64) (*model.Hospital, error) {
	return s.hospitals.Get(ctx, id)
}

// Hospitals lists hospitals, optionally filtered by status.
func (s *Service) Hospitals(ctx context.Context, status model.HospitalStatus) ([]*model.Hospital, error) {
	return s.hospitals.List(ctx, status)
}

// Close detaches the invalidator and stops every running simulation.
func (s *Service) Close() {
	s.invalidator.Detach()
	s.Registry.StopAll()
}

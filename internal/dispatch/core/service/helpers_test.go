package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/broadcast"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/store/memory"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

var errBrokerDown = errors.New("broker down")

// switchTransport records sent events and fails while fail is set.
type switchTransport struct {
	fail atomic.Bool

	mu     sync.Mutex
	events []*model.Event
}

func (s *switchTransport) Send(_ context.Context, e *model.Event) error {
	if s.fail.Load() {
		return errBrokerDown
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

func (s *switchTransport) topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Topic)
	}
	return out
}

func (s *switchTransport) reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

type fixture struct {
	store     *memory.Store
	transport *switchTransport
	bus       *broadcast.Broadcaster
	svc       *Service
}

func newFixture(t *testing.T, store *memory.Store) *fixture {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	tr := &switchTransport{}
	bus := broadcast.New(broadcast.WithTransport(tr))

	tun := DefaultTunables()
	tun.TickInterval = 5 * time.Millisecond
	svc := New(store, bus, tun)
	t.Cleanup(svc.Close)

	return &fixture{store: store, transport: tr, bus: bus, svc: svc}
}

func (f *fixture) addHospital(id int64, p geo.Point) {
	f.store.PutHospital(&model.Hospital{
		ID:       id,
		Name:     "Hospital",
		Location: p,
		Capacity: 100,
		Status:   model.HospitalOperational,
	})
}

func (f *fixture) addAmbulance(id int64, p geo.Point, status model.AmbulanceStatus) {
	loc := p
	f.store.PutAmbulance(&model.Ambulance{
		ID:             id,
		CallSign:       "AMB",
		Location:       &loc,
		Status:         status,
		EquipmentLevel: model.EquipmentBasic,
		LastUpdated:    time.Now().UTC(),
	})
}

// metersPerDegree is the length of one degree along a meridian.
var metersPerDegree = geo.EarthRadius * math.Pi / 180

// north returns the point m meters north of p.
func north(p geo.Point, m float64) geo.Point {
	return geo.NewPoint(p.Lng, p.Lat+m/metersPerDegree)
}

var lagos = geo.NewPoint(3.3792, 6.4969)

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

package service

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// simulation is the handle of one movement loop. It is owned by the Registry.
type simulation struct {
	ambulanceID int64
	start       geo.Point
	target      geo.Point
	speedKmh    float64
	distance    float64
	totalSteps  int
	tick        time.Duration
	startedAt   time.Time

	step   atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *simulation) progress() *model.SimulationProgress {
	step := int(s.step.Load())
	frac := float64(step) / float64(s.totalSteps)
	return &model.SimulationProgress{
		AmbulanceID:     s.ambulanceID,
		Progress:        math.Round(frac*10000) / 100,
		CurrentStep:     step,
		TotalSteps:      s.totalSteps,
		ETASeconds:      (time.Duration(s.totalSteps-step) * s.tick).Seconds(),
		RemainingMeters: s.distance * (1 - frac),
		SpeedKmh:        s.speedKmh,
		DistanceMeters:  s.distance,
		Target:          s.target,
		StartedAt:       s.startedAt,
	}
}

// StartMovementSimulation moves an ambulance towards target in straight-line
// steps, one per tick. A simulation already running for the same ambulance is
// stopped first. The last step lands exactly on target with speed 0.
func (r *Registry) StartMovementSimulation(ctx context.Context, id int64, target geo.Point, speedKmh float64) (*model.SimulationProgress, error) {
	if err := target.Validate(); err != nil {
		return nil, util.Validation("invalid target: %v", err)
	}
	if speedKmh <= 0 || math.IsNaN(speedKmh) || math.IsInf(speedKmh, 0) {
		return nil, util.Validation("speed must be a positive number of km/h, got %v", speedKmh)
	}

	unlock := r.simLocks.Lock(id)
	defer unlock()

	r.stopSimulation(id)

	a, err := r.ambulances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Location == nil {
		return nil, util.Validation("ambulance %d has no current location", id)
	}

	tick := r.settings.load().TickInterval
	distance := geo.Distance(*a.Location, target)
	perTick := speedKmh * 1000 / 3600 * tick.Seconds()
	steps := int(math.Ceil(distance / perTick))
	if steps < 1 {
		steps = 1
	}

	simCtx, cancel := context.WithCancel(context.Background())
	sim := &simulation{
		ambulanceID: id,
		start:       *a.Location,
		target:      target,
		speedKmh:    speedKmh,
		distance:    distance,
		totalSteps:  steps,
		tick:        tick,
		startedAt:   r.now().UTC(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	r.simMu.Lock()
	r.sims[id] = sim
	r.simMu.Unlock()
	metrics.ActiveSimulations.Inc()

	go r.runSimulation(simCtx, sim)

	r.log.Info("Movement simulation started",
		log.Ambulance(id),
		"distanceMeters", distance,
		"steps", steps,
		"speedKmh", speedKmh,
	)
	return sim.progress(), nil
}

// StopMovementSimulation cancels the running simulation of an ambulance and
// waits for its loop to exit. It reports whether one was running.
func (r *Registry) StopMovementSimulation(id int64) bool {
	unlock := r.simLocks.Lock(id)
	defer unlock()
	return r.stopSimulation(id)
}

// SimulationProgress returns the progress of the running simulation, if any.
func (r *Registry) SimulationProgress(id int64) (*model.SimulationProgress, bool) {
	r.simMu.Lock()
	sim, ok := r.sims[id]
	r.simMu.Unlock()
	if !ok {
		return nil, false
	}
	return sim.progress(), true
}

// Teleport stops any simulation and moves the ambulance to p with speed 0.
func (r *Registry) Teleport(ctx context.Context, id int64, p geo.Point) (*model.Ambulance, error) {
	if err := p.Validate(); err != nil {
		return nil, util.Validation("invalid location: %v", err)
	}

	unlock := r.simLocks.Lock(id)
	defer unlock()

	r.stopSimulation(id)

	zero := 0.0
	return r.UpdateLocation(ctx, id, p, &zero, nil)
}

// StopAll stops every running simulation.
func (r *Registry) StopAll() {
	r.simMu.Lock()
	ids := make([]int64, 0, len(r.sims))
	for id := range r.sims {
		ids = append(ids, id)
	}
	r.simMu.Unlock()

	for _, id := range ids {
		r.StopMovementSimulation(id)
	}
}

// stopSimulation must be called with the simulation lock of id held.
func (r *Registry) stopSimulation(id int64) bool {
	r.simMu.Lock()
	sim, ok := r.sims[id]
	if ok {
		delete(r.sims, id)
	}
	r.simMu.Unlock()
	if !ok {
		return false
	}

	sim.cancel()
	<-sim.done
	r.log.Info("Movement simulation stopped", log.Ambulance(id), "step", sim.step.Load(), "totalSteps", sim.totalSteps)
	return true
}

func (r *Registry) runSimulation(ctx context.Context, sim *simulation) {
	defer close(sim.done)
	defer metrics.ActiveSimulations.Dec()
	defer r.forgetSimulation(sim)

	ticker := time.NewTicker(sim.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		step := int(sim.step.Load()) + 1
		final := step >= sim.totalSteps
		if !r.applyStep(ctx, sim, step, final) || final {
			return
		}
	}
}

// applyStep writes one step under the ambulance lock. It re-checks ctx after
// taking the lock so that no step lands once a stop has been requested.
func (r *Registry) applyStep(ctx context.Context, sim *simulation, step int, final bool) bool {
	unlock := r.locks.Lock(sim.ambulanceID)
	defer unlock()

	if ctx.Err() != nil {
		return false
	}

	point := sim.target
	speed := 0.0
	if !final {
		point = geo.Interpolate(sim.start, sim.target, float64(step)/float64(sim.totalSteps))
		speed = sim.speedKmh
	}

	if _, err := r.updateLocationLocked(ctx, sim.ambulanceID, point, &speed, nil); err != nil {
		r.log.Error(err, "Movement simulation step failed", log.Ambulance(sim.ambulanceID), "step", step)
		return false
	}
	sim.step.Store(int64(step))

	if final {
		r.log.Info("Movement simulation reached target", log.Ambulance(sim.ambulanceID), "target", sim.target.String())
	}
	return true
}

func (r *Registry) forgetSimulation(sim *simulation) {
	r.simMu.Lock()
	if r.sims[sim.ambulanceID] == sim {
		delete(r.sims, sim.ambulanceID)
	}
	r.simMu.Unlock()
}

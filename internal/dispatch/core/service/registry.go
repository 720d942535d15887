package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// Registry owns ambulance state: status transitions, location updates and
// movement simulations.
//
// Every mutation of one ambulance runs under that ambulance's lock, and the
// matching event is published before the lock is released. Events for one
// ambulance are therefore emitted in the order the changes were applied.
type Registry struct {
	ambulances core.AmbulanceRepository
	hospitals  core.HospitalRepository
	events     core.EventPublisher
	settings   *settings
	now        func() time.Time
	log        log.Logger

	locks    *keyedMutex
	simLocks *keyedMutex

	simMu sync.Mutex
	sims  map[int64]*simulation
}

func newRegistry(ambulances core.AmbulanceRepository, hospitals core.HospitalRepository, events core.EventPublisher, cfg *settings) *Registry {
	return &Registry{
		ambulances: ambulances,
		hospitals:  hospitals,
		events:     events,
		settings:   cfg,
		now:        time.Now,
		log:        log.WithName("registry"),
		locks:      newKeyedMutex(),
		simLocks:   newKeyedMutex(),
		sims:       make(map[int64]*simulation),
	}
}

// Get returns an ambulance by id.
func (r *Registry) Get(ctx context.Context, id int64) (*model.Ambulance, error) {
	return r.ambulances.Get(ctx, id)
}

// List returns ambulances, optionally filtered by status.
func (r *Registry) List(ctx context.Context, status model.AmbulanceStatus) ([]*model.Ambulance, error) {
	return r.ambulances.List(ctx, status)
}

// UpdateLocation records a new position and publishes a location event
// carrying the previous position and the distance moved.
func (r *Registry) UpdateLocation(ctx context.Context, id int64, p geo.Point, speed, heading *float64) (*model.Ambulance, error) {
	if err := p.Validate(); err != nil {
		return nil, util.Validation("invalid location: %v", err)
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	return r.updateLocationLocked(ctx, id, p, speed, heading)
}

func (r *Registry) updateLocationLocked(ctx context.Context, id int64, p geo.Point, speed, heading *float64) (*model.Ambulance, error) {
	a, err := r.ambulances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := a.Clone()

	previous := a.Location
	moved := 0.0
	if previous != nil {
		moved = geo.Distance(*previous, p)
	}

	now := r.now().UTC()
	loc := p
	a.Location = &loc
	a.LastUpdated = now

	if err := r.ambulances.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save ambulance %d: %w", id, err)
	}

	rec := &model.MovementRecord{
		AmbulanceID: id,
		Location:    p,
		Speed:       speed,
		Heading:     heading,
		RecordedAt:  now,
	}
	if err := r.ambulances.AppendMovement(ctx, rec); err != nil {
		r.restoreLocation(ctx, prev, nil)
		return nil, fmt.Errorf("append movement for ambulance %d: %w", id, err)
	}

	payload := &model.LocationChanged{
		AmbulanceID:      id,
		CallSign:         a.CallSign,
		Location:         p,
		PreviousLocation: previous,
		DistanceMoved:    &moved,
		Speed:            speed,
		Heading:          heading,
	}
	if err := r.events.Publish(ctx, model.TopicAmbulanceLocation, eventKey(id), payload); err != nil {
		r.restoreLocation(ctx, prev, rec)
		return nil, util.IO(err, "publish location of ambulance %d", id)
	}

	return a, nil
}

// restoreLocation writes prev back and drops rec from the movement history
// when it was recorded.
func (r *Registry) restoreLocation(ctx context.Context, prev *model.Ambulance, rec *model.MovementRecord) {
	ctx = context.WithoutCancel(ctx)
	logger := log.FromContext(ctx, r.log).WithValues(log.Ambulance(prev.ID))
	if rec != nil {
		if err := r.ambulances.RemoveMovement(ctx, rec); err != nil {
			logger.Error(err, "Failed to drop unpublished movement record")
		}
	}
	if err := r.ambulances.Save(ctx, prev); err != nil {
		logger.Error(err, "Failed to roll back ambulance location")
	}
}

// Dispatch reserves an AVAILABLE ambulance for a hospital, making it BUSY.
func (r *Registry) Dispatch(ctx context.Context, id, hospitalID int64) (*model.Ambulance, error) {
	a, err := r.dispatch(ctx, id, hospitalID)
	switch {
	case err == nil:
		metrics.DispatchTotal.WithLabelValues("success").Inc()
	case errors.Is(err, util.ErrConflict):
		metrics.DispatchTotal.WithLabelValues("conflict").Inc()
	case errors.Is(err, util.ErrNotFound):
		metrics.DispatchTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.DispatchTotal.WithLabelValues("error").Inc()
	}
	return a, err
}

func (r *Registry) dispatch(ctx context.Context, id, hospitalID int64) (*model.Ambulance, error) {
	if _, err := r.hospitals.Get(ctx, hospitalID); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	a, err := r.ambulances.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AmbulanceAvailable {
		return nil, util.Conflict("ambulance %d is %s, not available", id, a.Status).
			WithDetail("status", string(a.Status))
	}

	next := a.Clone()
	next.Status = model.AmbulanceBusy
	next.AssignedHospitalID = &hospitalID
	next.LastUpdated = r.now().UTC()

	if err := r.commitStatus(ctx, a, next); err != nil {
		return nil, err
	}
	log.FromContext(ctx, r.log).Info("Ambulance dispatched", log.Ambulance(id), log.Hospital(hospitalID))
	return next, nil
}

// SetStatus moves an ambulance to any status. Moving to AVAILABLE clears the
// hospital assignment.
func (r *Registry) SetStatus(ctx context.Context, id int64, status model.AmbulanceStatus) (*model.Ambulance, error) {
	if _, err := model.ParseAmbulanceStatus(string(status)); err != nil {
		return nil, util.Validation("%v", err)
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	a, err := r.ambulances.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := a.Clone()
	next.Status = status
	if status == model.AmbulanceAvailable {
		next.AssignedHospitalID = nil
	}
	next.LastUpdated = r.now().UTC()

	if err := r.commitStatus(ctx, a, next); err != nil {
		return nil, err
	}
	return next, nil
}

// CompleteAssignment releases an ambulance back to AVAILABLE.
func (r *Registry) CompleteAssignment(ctx context.Context, id int64) (*model.Ambulance, error) {
	return r.SetStatus(ctx, id, model.AmbulanceAvailable)
}

// commitStatus saves next and publishes the status change. If the publish
// fails, prev is written back so the transition does not partially apply.
func (r *Registry) commitStatus(ctx context.Context, prev, next *model.Ambulance) error {
	if err := r.ambulances.Save(ctx, next); err != nil {
		return fmt.Errorf("save ambulance %d: %w", next.ID, err)
	}

	payload := &model.StatusChanged{
		AmbulanceID:        next.ID,
		CallSign:           next.CallSign,
		PreviousStatus:     prev.Status,
		NewStatus:          next.Status,
		AssignedHospitalID: next.AssignedHospitalID,
	}
	if err := r.events.Publish(ctx, model.TopicAmbulanceStatus, eventKey(next.ID), payload); err != nil {
		if rbErr := r.ambulances.Save(context.WithoutCancel(ctx), prev); rbErr != nil {
			log.FromContext(ctx, r.log).Error(rbErr, "Failed to roll back ambulance status", log.Ambulance(next.ID))
		}
		return util.IO(err, "publish status of ambulance %d", next.ID)
	}
	return nil
}

func eventKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

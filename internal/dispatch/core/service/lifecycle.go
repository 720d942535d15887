package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	fsmutil "github.com/rapidaid-io/rapidaid/internal/pkg/util/fsm"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Lifecycle drives emergency requests through their state machine and
// reserves or releases ambulances through the Registry.
//
// Each operation is all-or-nothing: when a later step fails, earlier steps
// are undone in reverse order before the error is returned.
type Lifecycle struct {
	requests  core.RequestRepository
	hospitals core.HospitalRepository
	registry  *Registry
	events    core.EventPublisher
	locks     *keyedMutex
	now       func() time.Time
	log       log.Logger
}

func newLifecycle(requests core.RequestRepository, hospitals core.HospitalRepository, registry *Registry, events core.EventPublisher) *Lifecycle {
	return &Lifecycle{
		requests:  requests,
		hospitals: hospitals,
		registry:  registry,
		events:    events,
		locks:     newKeyedMutex(),
		now:       time.Now,
		log:       log.WithName("lifecycle"),
	}
}

type undoFunc func(ctx context.Context)

func rollback(ctx context.Context, undo []undoFunc) {
	ctx = context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i](ctx)
	}
}

// Create opens a PENDING request for an AVAILABLE ambulance. The ambulance
// is not reserved until the request is accepted.
func (l *Lifecycle) Create(ctx context.Context, userLocation geo.Point, ambulanceID int64, hospitalID *int64) (*model.EmergencyRequest, error) {
	if err := userLocation.Validate(); err != nil {
		return nil, util.Validation("invalid user location: %v", err)
	}

	a, err := l.registry.Get(ctx, ambulanceID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AmbulanceAvailable {
		return nil, util.Validation("ambulance %d is %s, not available", ambulanceID, a.Status).
			WithDetail("ambulanceId", eventKey(ambulanceID))
	}
	if hospitalID != nil {
		if _, err := l.hospitals.Get(ctx, *hospitalID); err != nil {
			return nil, err
		}
	}

	now := l.now().UTC()
	req := &model.EmergencyRequest{
		UserLocation:         userLocation,
		Status:               model.RequestPending,
		HospitalID:           hospitalID,
		AmbulanceID:          &ambulanceID,
		RequestedAmbulanceID: &ambulanceID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := l.requests.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	logger := log.FromContext(ctx, l.log).WithValues(log.Request(req.ID), log.Ambulance(ambulanceID))

	payload := &model.RequestChanged{Request: req.Clone()}
	if err := l.events.Publish(ctx, model.TopicRequestCreated, eventKey(req.ID), payload); err != nil {
		// Nobody has seen the request yet, so it is removed rather than closed.
		if delErr := l.requests.Delete(context.WithoutCancel(ctx), req.ID); delErr != nil {
			logger.Error(delErr, "Failed to remove unannounced request")
		}
		return nil, util.IO(err, "publish creation of request %d", req.ID)
	}

	metrics.RequestTransitions.WithLabelValues("none", string(model.RequestPending)).Inc()
	logger.Info("Emergency request created")
	return req, nil
}

// Accept moves a PENDING request to ACCEPTED. The ambulance is re-checked and,
// when a hospital is known, dispatched to it.
func (l *Lifecycle) Accept(ctx context.Context, id int64, hospitalID *int64) (*model.EmergencyRequest, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	req, err := l.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, util.Validation("request %d is %s, only pending requests can be accepted", id, req.Status)
	}
	if req.AmbulanceID == nil {
		return nil, util.Validation("request %d has no ambulance", id)
	}
	if hospitalID != nil {
		if _, err := l.hospitals.Get(ctx, *hospitalID); err != nil {
			return nil, err
		}
	}

	prev := req.Clone()
	if hospitalID != nil {
		req.HospitalID = hospitalID
	}
	ambulanceID := *req.AmbulanceID

	var undo []undoFunc
	m := newRequestFSM(req, l.now, fsm.Callbacks{
		"before_" + eventAccept: fsmutil.Guard(func(ctx context.Context, _ *fsm.Event) error {
			a, err := l.registry.Get(ctx, ambulanceID)
			if err != nil {
				return err
			}
			if a.Status != model.AmbulanceAvailable {
				return util.Validation("ambulance %d is no longer available", ambulanceID)
			}
			if req.HospitalID == nil {
				return nil
			}
			if _, err := l.registry.Dispatch(ctx, ambulanceID, *req.HospitalID); err != nil {
				if errors.Is(err, util.ErrConflict) {
					return util.Validation("ambulance %d was claimed by another request", ambulanceID)
				}
				return err
			}
			req.AmbulanceReserved = true
			undo = append(undo, l.releaseUndo(ambulanceID))
			return nil
		}),
	})

	if err := fire(ctx, m, eventAccept); err != nil {
		return nil, err
	}
	if err := l.commit(ctx, prev, req, model.TopicRequestAccepted, undo); err != nil {
		return nil, err
	}

	log.FromContext(ctx, l.log).Info("Emergency request accepted", log.Request(id), log.Ambulance(ambulanceID), "reserved", req.AmbulanceReserved)
	return req, nil
}

// Decline moves a PENDING request to DECLINED. No ambulance was reserved.
func (l *Lifecycle) Decline(ctx context.Context, id int64, reason *string) (*model.EmergencyRequest, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	req, err := l.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, util.Validation("request %d is %s, only pending requests can be declined", id, req.Status)
	}

	prev := req.Clone()
	req.DeclineReason = reason
	if err := fire(ctx, newRequestFSM(req, l.now, nil), eventDecline); err != nil {
		return nil, err
	}
	if err := l.commit(ctx, prev, req, model.TopicRequestStatus, nil); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateStatus moves a request to any status. Jumps outside the lifecycle
// graph are allowed and logged. COMPLETED and CANCELLED release a reserved
// ambulance.
func (l *Lifecycle) UpdateStatus(ctx context.Context, id int64, status model.RequestStatus) (*model.EmergencyRequest, error) {
	if _, err := model.ParseRequestStatus(string(status)); err != nil {
		return nil, util.Validation("%v", err)
	}

	unlock := l.locks.Lock(id)
	defer unlock()

	req, err := l.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.transition(ctx, req, status)
}

// Cancel closes a request that is not COMPLETED or DECLINED, stopping and
// releasing its reserved ambulance. Cancelling twice is a no-op.
func (l *Lifecycle) Cancel(ctx context.Context, id int64) (*model.EmergencyRequest, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	req, err := l.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case model.RequestCompleted, model.RequestDeclined:
		return nil, util.Validation("request %d is %s and cannot be cancelled", id, req.Status)
	case model.RequestCancelled:
		return req, nil
	}
	return l.transition(ctx, req, model.RequestCancelled)
}

// transition applies from -> to with the side effects of the target status.
func (l *Lifecycle) transition(ctx context.Context, req *model.EmergencyRequest, to model.RequestStatus) (*model.EmergencyRequest, error) {
	from := req.Status
	if from == to {
		return req, nil
	}

	event, strict := eventFor(from, to)
	if !strict {
		log.FromContext(ctx, l.log).Warn("Request status jump outside the lifecycle", log.Request(req.ID), "from", from, "to", to)
	}

	prev := req.Clone()
	if err := fire(ctx, newRequestFSM(req, l.now, nil), event); err != nil {
		return nil, err
	}

	topic := model.TopicRequestStatus
	var undo []undoFunc
	switch to {
	case model.RequestCompleted, model.RequestCancelled:
		if to == model.RequestCompleted {
			topic = model.TopicRequestCompleted
		} else {
			topic = model.TopicRequestCancelled
		}
		if req.AmbulanceID != nil {
			u, err := l.releaseAmbulance(ctx, req)
			if err != nil {
				return nil, err
			}
			if u != nil {
				undo = append(undo, u)
			}
		}
	}

	if err := l.commit(ctx, prev, req, topic, undo); err != nil {
		return nil, err
	}
	log.FromContext(ctx, l.log).Info("Emergency request status changed", log.Request(req.ID), "from", from, "to", to)
	return req, nil
}

// commit saves req and publishes its event. On failure the undo steps run
// and the stored request is restored to prev.
func (l *Lifecycle) commit(ctx context.Context, prev, req *model.EmergencyRequest, topic string, undo []undoFunc) error {
	if err := l.requests.Save(ctx, req); err != nil {
		rollback(ctx, undo)
		return fmt.Errorf("save request %d: %w", req.ID, err)
	}

	payload := &model.RequestChanged{Request: req.Clone(), PreviousStatus: prev.Status}
	if err := l.events.Publish(ctx, topic, eventKey(req.ID), payload); err != nil {
		undo = append(undo, func(ctx context.Context) {
			if err := l.requests.Save(ctx, prev); err != nil {
				log.FromContext(ctx, l.log).Error(err, "Failed to restore request", log.Request(prev.ID))
			}
		})
		rollback(ctx, undo)
		return util.IO(err, "publish %s for request %d", topic, req.ID)
	}

	metrics.RequestTransitions.WithLabelValues(string(prev.Status), string(req.Status)).Inc()
	return nil
}

// releaseAmbulance stops the simulation of req's ambulance and frees it.
// An ambulance this request never reserved is left alone while another open
// request holds a reservation on it. Releasing an AVAILABLE ambulance only
// stops its simulation.
func (l *Lifecycle) releaseAmbulance(ctx context.Context, req *model.EmergencyRequest) (undoFunc, error) {
	ambulanceID := *req.AmbulanceID
	logger := log.FromContext(ctx, l.log).WithValues(log.Request(req.ID), log.Ambulance(ambulanceID))

	if !req.AmbulanceReserved {
		holder, err := l.reservationHolder(ctx, req.ID, ambulanceID)
		if err != nil {
			return nil, err
		}
		if holder != 0 {
			logger.Info("Ambulance kept for another request", "holder", holder)
			return nil, nil
		}
	}

	l.registry.StopMovementSimulation(ambulanceID)
	a, err := l.registry.Get(ctx, ambulanceID)
	if err != nil {
		return nil, fmt.Errorf("release ambulance %d: %w", ambulanceID, err)
	}
	req.AmbulanceReserved = false
	if a.Status == model.AmbulanceAvailable {
		return nil, nil
	}
	if _, err := l.registry.CompleteAssignment(ctx, ambulanceID); err != nil {
		return nil, fmt.Errorf("release ambulance %d: %w", ambulanceID, err)
	}
	return l.restoreUndo(a), nil
}

// reservationHolder returns the id of another open request that reserved
// ambulanceID, or 0.
func (l *Lifecycle) reservationHolder(ctx context.Context, requestID, ambulanceID int64) (int64, error) {
	reqs, _, err := l.requests.List(ctx, model.RequestFilter{AmbulanceID: &ambulanceID})
	if err != nil {
		return 0, err
	}
	for _, r := range reqs {
		if r.ID != requestID && r.AmbulanceReserved && !r.Status.Terminal() {
			return r.ID, nil
		}
	}
	return 0, nil
}

func (l *Lifecycle) releaseUndo(ambulanceID int64) undoFunc {
	return func(ctx context.Context) {
		if _, err := l.registry.CompleteAssignment(ctx, ambulanceID); err != nil {
			log.FromContext(ctx, l.log).Error(err, "Failed to release ambulance during rollback", log.Ambulance(ambulanceID))
		}
	}
}

// restoreUndo puts an ambulance back into the state captured in prev.
func (l *Lifecycle) restoreUndo(prev *model.Ambulance) undoFunc {
	return func(ctx context.Context) {
		var err error
		if prev.Status == model.AmbulanceBusy && prev.AssignedHospitalID != nil {
			_, err = l.registry.Dispatch(ctx, prev.ID, *prev.AssignedHospitalID)
		} else {
			_, err = l.registry.SetStatus(ctx, prev.ID, prev.Status)
		}
		if err != nil {
			log.FromContext(ctx, l.log).Error(err, "Failed to restore ambulance during rollback", log.Ambulance(prev.ID))
		}
	}
}

// Get returns a request by id.
func (l *Lifecycle) Get(ctx context.Context, id int64) (*model.EmergencyRequest, error) {
	return l.requests.Get(ctx, id)
}

// List returns a page of requests, newest first.
func (l *Lifecycle) List(ctx context.Context, filter model.RequestFilter) (*model.RequestPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	items, total, err := l.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &model.RequestPage{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// PendingCount returns the number of PENDING requests.
func (l *Lifecycle) PendingCount(ctx context.Context) (int, error) {
	return l.requests.CountByStatus(ctx, model.RequestPending)
}

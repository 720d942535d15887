// Package memory is a goroutine-safe in-process storage backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/store"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

var _ core.Repository = (*Store)(nil)

// Store keeps every entity in maps guarded by one RWMutex. Values are cloned
// on the way in and out so callers never share memory with the store.
type Store struct {
	mu            sync.RWMutex
	ambulances    map[int64]*model.Ambulance
	hospitals     map[int64]*model.Hospital
	requests      map[int64]*model.EmergencyRequest
	movements     map[int64][]model.MovementRecord
	nextRequestID int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		ambulances: make(map[int64]*model.Ambulance),
		hospitals:  make(map[int64]*model.Hospital),
		requests:   make(map[int64]*model.EmergencyRequest),
		movements:  make(map[int64][]model.MovementRecord),
	}
}

// NewSeeded returns a Store holding the demo hospitals and ambulances.
func NewSeeded() *Store {
	s := New()
	for _, h := range store.DemoHospitals() {
		s.PutHospital(h)
	}
	for _, a := range store.DemoAmbulances(time.Now().UTC()) {
		s.PutAmbulance(a)
	}
	return s
}

func (s *Store) Ambulance() core.AmbulanceRepository { return (*ambulanceRepo)(s) }
func (s *Store) Hospital() core.HospitalRepository   { return (*hospitalRepo)(s) }
func (s *Store) Request() core.RequestRepository     { return (*requestRepo)(s) }

// PutAmbulance inserts or replaces an ambulance.
func (s *Store) PutAmbulance(a *model.Ambulance) {
	s.mu.Lock()
	s.ambulances[a.ID] = a.Clone()
	s.mu.Unlock()
}

// PutHospital inserts or replaces a hospital.
func (s *Store) PutHospital(h *model.Hospital) {
	s.mu.Lock()
	s.hospitals[h.ID] = h.Clone()
	s.mu.Unlock()
}

// Movements returns the recorded location history of an ambulance.
func (s *Store) Movements(ambulanceID int64) []model.MovementRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.MovementRecord(nil), s.movements[ambulanceID]...)
}

type ambulanceRepo Store

func (r *ambulanceRepo) Get(_ context.Context, id int64) (*model.Ambulance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.ambulances[id]
	if !ok {
		return nil, util.NotFound("ambulance", id)
	}
	return a.Clone(), nil
}

func (r *ambulanceRepo) List(_ context.Context, status model.AmbulanceStatus) ([]*model.Ambulance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Ambulance, 0, len(r.ambulances))
	for _, a := range r.ambulances {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ambulanceRepo) Save(_ context.Context, a *model.Ambulance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ambulances[a.ID] = a.Clone()
	return nil
}

func (r *ambulanceRepo) AppendMovement(_ context.Context, rec *model.MovementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ambulances[rec.AmbulanceID]; !ok {
		return util.NotFound("ambulance", rec.AmbulanceID)
	}
	r.movements[rec.AmbulanceID] = append(r.movements[rec.AmbulanceID], *rec)
	return nil
}

func (r *ambulanceRepo) RemoveMovement(_ context.Context, rec *model.MovementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.movements[rec.AmbulanceID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].RecordedAt.Equal(rec.RecordedAt) {
			r.movements[rec.AmbulanceID] = append(history[:i], history[i+1:]...)
			break
		}
	}
	return nil
}

type hospitalRepo Store

func (r *hospitalRepo) Get(_ context.Context, id int64) (*model.Hospital, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hospitals[id]
	if !ok {
		return nil, util.NotFound("hospital", id)
	}
	return h.Clone(), nil
}

func (r *hospitalRepo) List(_ context.Context, status model.HospitalStatus) ([]*model.Hospital, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Hospital, 0, len(r.hospitals))
	for _, h := range r.hospitals {
		if status != "" && h.Status != status {
			continue
		}
		out = append(out, h.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *hospitalRepo) WithinDistance(ctx context.Context, p geo.Point, meters float64) ([]*model.Hospital, error) {
	all, err := r.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, h := range all {
		if geo.Distance(p, h.Location) <= meters {
			out = append(out, h)
		}
	}
	return out, nil
}

type requestRepo Store

func (r *requestRepo) Get(_ context.Context, id int64) (*model.EmergencyRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, util.NotFound("request", id)
	}
	return req.Clone(), nil
}

func (r *requestRepo) Save(_ context.Context, req *model.EmergencyRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == 0 {
		r.nextRequestID++
		req.ID = r.nextRequestID
	} else if req.ID > r.nextRequestID {
		r.nextRequestID = req.ID
	}
	r.requests[req.ID] = req.Clone()
	return nil
}

func (r *requestRepo) List(_ context.Context, filter model.RequestFilter) ([]*model.EmergencyRequest, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*model.EmergencyRequest, 0, len(r.requests))
	for _, req := range r.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.AmbulanceID != nil && (req.AmbulanceID == nil || *req.AmbulanceID != *filter.AmbulanceID) {
			continue
		}
		matched = append(matched, req)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	out := make([]*model.EmergencyRequest, 0, end-start)
	for _, req := range matched[start:end] {
		out = append(out, req.Clone())
	}
	return out, total, nil
}

func (r *requestRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return util.NotFound("request", id)
	}
	delete(r.requests, id)
	return nil
}

func (r *requestRepo) CountByStatus(_ context.Context, status model.RequestStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, req := range r.requests {
		if req.Status == status {
			n++
		}
	}
	return n, nil
}

package core

import (
	"context"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

// AmbulanceRepository persists ambulances and their movement history.
// Implementations return util.NotFound for missing rows and util.IO for
// any other failure.
type AmbulanceRepository interface {
	// Get retrieves an ambulance by id.
	Get(ctx context.Context, id int64) (*model.Ambulance, error)

	// List returns ambulances ordered by id. An empty status returns all.
	List(ctx context.Context, status model.AmbulanceStatus) ([]*model.Ambulance, error)

	// Save overwrites the stored ambulance.
	Save(ctx context.Context, a *model.Ambulance) error

	// AppendMovement adds a location history record.
	AppendMovement(ctx context.Context, rec *model.MovementRecord) error

	// RemoveMovement deletes the record AppendMovement stored for rec's
	// ambulance and timestamp. Removing a missing record is not an error.
	RemoveMovement(ctx context.Context, rec *model.MovementRecord) error
}

// HospitalRepository is read-only from the dispatch core's point of view.
type HospitalRepository interface {
	Get(ctx context.Context, id int64) (*model.Hospital, error)

	// List returns hospitals ordered by id. An empty status returns all.
	List(ctx context.Context, status model.HospitalStatus) ([]*model.Hospital, error)

	// WithinDistance returns hospitals at most meters from p.
	WithinDistance(ctx context.Context, p geo.Point, meters float64) ([]*model.Hospital, error)
}

// RequestRepository persists emergency requests.
type RequestRepository interface {
	Get(ctx context.Context, id int64) (*model.EmergencyRequest, error)

	// Save inserts r when r.ID is zero, assigning the id, and updates it otherwise.
	Save(ctx context.Context, r *model.EmergencyRequest) error

	// List returns one page ordered by creation time, newest first, plus the
	// total number of matching requests.
	List(ctx context.Context, filter model.RequestFilter) ([]*model.EmergencyRequest, int, error)

	CountByStatus(ctx context.Context, status model.RequestStatus) (int, error)

	// Delete removes a request. Ids are never reused.
	Delete(ctx context.Context, id int64) error
}

// Repository groups the repositories of one storage backend.
type Repository interface {
	Ambulance() AmbulanceRepository
	Hospital() HospitalRepository
	Request() RequestRepository
}

package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addHospital(1, lagos)
	f.addAmbulance(1, north(lagos, 500), model.AmbulanceAvailable)

	a, err := f.svc.Registry.Dispatch(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if a.Status != model.AmbulanceBusy || a.AssignedHospitalID == nil || *a.AssignedHospitalID != 1 {
		t.Fatalf("after dispatch got status %s hospital %v", a.Status, a.AssignedHospitalID)
	}

	_, err = f.svc.Registry.Dispatch(ctx, 1, 1)
	if !errors.Is(err, util.ErrConflict) {
		t.Fatalf("second Dispatch error = %v, want conflict", err)
	}

	got, _ := f.svc.Registry.Get(ctx, 1)
	if got.Status != model.AmbulanceBusy || *got.AssignedHospitalID != 1 {
		t.Errorf("conflicting dispatch changed state: %+v", got)
	}
}

func TestDispatchNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addHospital(1, lagos)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)

	tests := []struct {
		name        string
		ambulance   int64
		hospital    int64
		wantAmbFree bool
	}{
		{"unknown hospital", 1, 99, true},
		{"unknown ambulance", 42, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Registry.Dispatch(ctx, tt.ambulance, tt.hospital)
			if !errors.Is(err, util.ErrNotFound) {
				t.Fatalf("error = %v, want not found", err)
			}
			a, _ := f.svc.Registry.Get(ctx, 1)
			if a.Status != model.AmbulanceAvailable {
				t.Errorf("ambulance 1 status = %s, want available", a.Status)
			}
		})
	}
}

func TestLocationPublishFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	start := north(lagos, 200)
	f.addAmbulance(1, start, model.AmbulanceAvailable)

	f.transport.fail.Store(true)
	if _, err := f.svc.Registry.UpdateLocation(ctx, 1, north(lagos, 900), nil, nil); !errors.Is(err, util.ErrIO) {
		t.Fatalf("UpdateLocation error = %v, want io", err)
	}
	f.transport.fail.Store(false)

	a, _ := f.svc.Registry.Get(ctx, 1)
	if a.Location == nil || *a.Location != start {
		t.Errorf("location after failed publish = %v, want %v", a.Location, start)
	}
	if n := len(f.store.Movements(1)); n != 0 {
		t.Errorf("failed update left %d movement records", n)
	}

	if _, err := f.svc.Registry.UpdateLocation(ctx, 1, north(lagos, 900), nil, nil); err != nil {
		t.Fatal(err)
	}
	if n := len(f.store.Movements(1)); n != 1 {
		t.Errorf("movement records after retry = %d, want 1", n)
	}
}

func TestStatusPublishFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addHospital(1, lagos)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)

	f.transport.fail.Store(true)
	if _, err := f.svc.Registry.Dispatch(ctx, 1, 1); !errors.Is(err, util.ErrIO) {
		t.Fatalf("Dispatch error = %v, want io", err)
	}

	a, _ := f.svc.Registry.Get(ctx, 1)
	if a.Status != model.AmbulanceAvailable || a.AssignedHospitalID != nil {
		t.Errorf("status not rolled back: %s, hospital %v", a.Status, a.AssignedHospitalID)
	}
}

func TestSetStatusAvailableClearsAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addHospital(1, lagos)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)

	if _, err := f.svc.Registry.Dispatch(ctx, 1, 1); err != nil {
		t.Fatal(err)
	}
	a, err := f.svc.Registry.CompleteAssignment(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != model.AmbulanceAvailable || a.AssignedHospitalID != nil {
		t.Errorf("got %s, hospital %v", a.Status, a.AssignedHospitalID)
	}

	if _, err := f.svc.Registry.SetStatus(ctx, 1, "parked"); !errors.Is(err, util.ErrValidation) {
		t.Errorf("unknown status error = %v, want validation", err)
	}
}

func TestUpdateLocationPublishesDistance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.store.PutAmbulance(&model.Ambulance{ID: 1, CallSign: "AMB", Status: model.AmbulanceAvailable})

	var moves []*model.LocationChanged
	f.bus.Subscribe(func(_ context.Context, e *model.Event) {
		moves = append(moves, e.Payload.(*model.LocationChanged))
	}, model.TopicAmbulanceLocation)

	if _, err := f.svc.Registry.UpdateLocation(ctx, 1, lagos, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Registry.UpdateLocation(ctx, 1, north(lagos, 250), nil, nil); err != nil {
		t.Fatal(err)
	}

	if len(moves) != 2 {
		t.Fatalf("got %d location events, want 2", len(moves))
	}
	if moves[0].PreviousLocation != nil || *moves[0].DistanceMoved != 0 {
		t.Errorf("first move: previous %v distance %v", moves[0].PreviousLocation, *moves[0].DistanceMoved)
	}
	if d := *moves[1].DistanceMoved; math.Abs(d-250) > 0.5 {
		t.Errorf("second move distance = %.2f, want 250", d)
	}
	if got := len(f.store.Movements(1)); got != 2 {
		t.Errorf("got %d movement records, want 2", got)
	}
}

func TestUpdateLocationErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)

	tests := []struct {
		name string
		id   int64
		p    geo.Point
		want error
	}{
		{"latitude out of range", 1, geo.NewPoint(3, 91), util.ErrValidation},
		{"longitude out of range", 1, geo.NewPoint(-181, 0), util.ErrValidation},
		{"unknown ambulance", 9, lagos, util.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Registry.UpdateLocation(ctx, tt.id, tt.p, nil, nil); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

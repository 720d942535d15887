package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
)

func TestSimulationEndsOnTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)
	target := north(lagos, 198)

	// 3600 km/h at a 5ms tick is 5m per step.
	p, err := f.svc.Registry.StartMovementSimulation(ctx, 1, target, 3600)
	if err != nil {
		t.Fatalf("StartMovementSimulation: %v", err)
	}
	if p.TotalSteps != 40 {
		t.Errorf("total steps = %d, want 40", p.TotalSteps)
	}

	eventually(t, 5*time.Second, func() bool {
		_, running := f.svc.Registry.SimulationProgress(1)
		return !running
	})

	a, _ := f.svc.Registry.Get(ctx, 1)
	if *a.Location != target {
		t.Errorf("final location = %s, want %s", a.Location, target)
	}

	moves := f.store.Movements(1)
	if len(moves) != 40 {
		t.Fatalf("got %d movement records, want 40", len(moves))
	}
	last := moves[len(moves)-1]
	if last.Speed == nil || *last.Speed != 0 {
		t.Errorf("last step speed = %v, want 0", last.Speed)
	}
	if first := moves[0]; first.Speed == nil || *first.Speed != 3600 {
		t.Errorf("first step speed = %v, want 3600", first.Speed)
	}
}

func TestSimulationRestartReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)

	far := north(lagos, 50000)
	if _, err := f.svc.Registry.StartMovementSimulation(ctx, 1, far, 60); err != nil {
		t.Fatal(err)
	}
	other := north(lagos, -50000)
	if _, err := f.svc.Registry.StartMovementSimulation(ctx, 1, other, 60); err != nil {
		t.Fatal(err)
	}

	p, ok := f.svc.Registry.SimulationProgress(1)
	if !ok || p.Target != other {
		t.Fatalf("progress = %+v, %v; want second target", p, ok)
	}

	time.Sleep(30 * time.Millisecond)
	if !f.svc.Registry.StopMovementSimulation(1) {
		t.Fatal("StopMovementSimulation reported nothing running")
	}
	a, _ := f.svc.Registry.Get(ctx, 1)
	stopped := *a.Location
	time.Sleep(30 * time.Millisecond)
	a, _ = f.svc.Registry.Get(ctx, 1)
	if *a.Location != stopped {
		t.Errorf("location changed after stop: %s -> %s", stopped, a.Location)
	}
	if f.svc.Registry.StopMovementSimulation(1) {
		t.Error("second stop reported a running simulation")
	}
}

func TestTeleportStopsSimulation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)

	if _, err := f.svc.Registry.StartMovementSimulation(ctx, 1, north(lagos, 50000), 60); err != nil {
		t.Fatal(err)
	}
	dest := north(lagos, -1000)
	if _, err := f.svc.Registry.Teleport(ctx, 1, dest); err != nil {
		t.Fatal(err)
	}
	if _, running := f.svc.Registry.SimulationProgress(1); running {
		t.Error("simulation still running after teleport")
	}

	time.Sleep(20 * time.Millisecond)
	a, _ := f.svc.Registry.Get(ctx, 1)
	if *a.Location != dest {
		t.Errorf("location = %s, want %s", a.Location, dest)
	}
}

func TestSimulationValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.addAmbulance(1, lagos, model.AmbulanceAvailable)
	f.store.PutAmbulance(&model.Ambulance{ID: 2, Status: model.AmbulanceAvailable})

	tests := []struct {
		name  string
		id    int64
		speed float64
		want  error
	}{
		{"zero speed", 1, 0, util.ErrValidation},
		{"negative speed", 1, -10, util.ErrValidation},
		{"no location", 2, 60, util.ErrValidation},
		{"unknown ambulance", 3, 60, util.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Registry.StartMovementSimulation(ctx, tt.id, north(lagos, 100), tt.speed)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

func TestSeededStore(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	ambulances, err := s.Ambulance().List(ctx, model.AmbulanceAvailable)
	if err != nil {
		t.Fatal(err)
	}
	if len(ambulances) != 10 {
		t.Errorf("got %d available ambulances, want 10", len(ambulances))
	}

	h, err := s.Hospital().Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if h.Capacity != 761 {
		t.Errorf("hospital 1 capacity = %d, want 761", h.Capacity)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	s := New()
	loc := geo.NewPoint(3.3792, 6.5244)
	s.PutAmbulance(&model.Ambulance{ID: 7, CallSign: "LASG-AMB-001", Location: &loc, Status: model.AmbulanceAvailable})

	a, _ := s.Ambulance().Get(context.Background(), 7)
	a.Status = model.AmbulanceBusy
	a.Location.Lat = 0

	again, _ := s.Ambulance().Get(context.Background(), 7)
	if again.Status != model.AmbulanceAvailable || again.Location.Lat != 6.5244 {
		t.Errorf("stored ambulance was mutated through a returned copy: %+v", again)
	}
}

func TestNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"ambulance", func() error { _, err := s.Ambulance().Get(ctx, 99); return err }},
		{"hospital", func() error { _, err := s.Hospital().Get(ctx, 99); return err }},
		{"request", func() error { _, err := s.Request().Get(ctx, 99); return err }},
		{"movement", func() error { return s.Ambulance().AppendMovement(ctx, &model.MovementRecord{AmbulanceID: 99}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, util.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestHospitalsWithinDistance(t *testing.T) {
	s := NewSeeded()
	// LASG-AMB-001's seed position, about 3 km north of LUTH.
	got, err := s.Hospital().WithinDistance(context.Background(), geo.NewPoint(3.3792, 6.5244), 12000)
	if err != nil {
		t.Fatal(err)
	}
	ids := map[int64]bool{}
	for _, h := range got {
		ids[h.ID] = true
	}
	if !ids[1] || !ids[11] || len(got) != 2 {
		t.Errorf("hospitals %v, within 12km, want LUTH (1) and Eko (11)", ids)
	}
}

func TestRequestListPagingNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		status := model.RequestPending
		if i%2 == 1 {
			status = model.RequestCompleted
		}
		req := &model.EmergencyRequest{Status: status, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Request().Save(ctx, req); err != nil {
			t.Fatal(err)
		}
		if req.ID != int64(i+1) {
			t.Fatalf("assigned id = %d, want %d", req.ID, i+1)
		}
	}

	page, total, err := s.Request().List(ctx, model.RequestFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 || page[0].ID != 5 || page[1].ID != 4 {
		t.Errorf("page 1 = %v (total %d), want ids [5 4] of 5", ids(page), total)
	}

	page, _, _ = s.Request().List(ctx, model.RequestFilter{Page: 3, Limit: 2})
	if len(page) != 1 || page[0].ID != 1 {
		t.Errorf("page 3 = %v, want [1]", ids(page))
	}

	pending := model.RequestPending
	page, total, _ = s.Request().List(ctx, model.RequestFilter{Status: &pending})
	if total != 3 || len(page) != 3 {
		t.Errorf("pending filter returned %d of %d", len(page), total)
	}

	n, _ := s.Request().CountByStatus(ctx, model.RequestCompleted)
	if n != 2 {
		t.Errorf("CountByStatus(completed) = %d, want 2", n)
	}
}

func ids(reqs []*model.EmergencyRequest) []int64 {
	out := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.ID)
	}
	return out
}

func TestRemoveMovement(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutAmbulance(&model.Ambulance{ID: 1, CallSign: "AMB-001", Status: model.AmbulanceAvailable})

	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := range 3 {
		rec := &model.MovementRecord{AmbulanceID: 1, Location: geo.NewPoint(3.38, 6.5), RecordedAt: t0.Add(time.Duration(i) * time.Second)}
		if err := s.Ambulance().AppendMovement(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Ambulance().RemoveMovement(ctx, &model.MovementRecord{AmbulanceID: 1, RecordedAt: t0.Add(time.Second)}); err != nil {
		t.Fatal(err)
	}
	got := s.Movements(1)
	if len(got) != 2 || !got[0].RecordedAt.Equal(t0) || !got[1].RecordedAt.Equal(t0.Add(2*time.Second)) {
		t.Errorf("history after removal = %v", got)
	}

	if err := s.Ambulance().RemoveMovement(ctx, &model.MovementRecord{AmbulanceID: 1, RecordedAt: t0.Add(time.Hour)}); err != nil {
		t.Errorf("removing an unknown record = %v, want nil", err)
	}
	if len(s.Movements(1)) != 2 {
		t.Error("removing an unknown record changed the history")
	}
}

func TestDeleteRequest(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := &model.EmergencyRequest{Status: model.RequestPending, UserLocation: geo.NewPoint(3.38, 6.5)}
	if err := s.Request().Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.Request().Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Request().Get(ctx, first.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("deleted request lookup = %v, want not found", err)
	}
	if err := s.Request().Delete(ctx, first.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}

	next := &model.EmergencyRequest{Status: model.RequestPending, UserLocation: geo.NewPoint(3.38, 6.5)}
	if err := s.Request().Save(ctx, next); err != nil {
		t.Fatal(err)
	}
	if next.ID == first.ID {
		t.Errorf("id %d reused after delete", next.ID)
	}
}

func TestRequestListByAmbulance(t *testing.T) {
	ctx := context.Background()
	s := New()
	one, two := int64(1), int64(2)
	for _, amb := range []*int64{&one, &two, &one, nil} {
		if err := s.Request().Save(ctx, &model.EmergencyRequest{Status: model.RequestPending, AmbulanceID: amb}); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := s.Request().List(ctx, model.RequestFilter{AmbulanceID: &one})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(page) != 2 || page[0].ID != 3 || page[1].ID != 1 {
		t.Errorf("requests for ambulance 1 = %v (total %d), want [3 1]", ids(page), total)
	}
}

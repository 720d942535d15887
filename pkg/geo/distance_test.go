package geo

import (
	"encoding/json"
	"math"
	"testing"
)

var (
	luth       = NewPoint(3.3792, 6.4969)
	ekoHosp    = NewPoint(3.4219, 6.4433)
	national   = NewPoint(7.4951, 9.0579)
	antipodeOf = NewPoint(-176.6208, -6.4969)
)

func TestDistanceSymmetricAndZero(t *testing.T) {
	points := []Point{luth, ekoHosp, national, antipodeOf, NewPoint(0, 0), NewPoint(180, 90)}

	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			if ab, ba := Distance(a, b), Distance(b, a); ab != ba {
				t.Errorf("Distance not symmetric for %v, %v: %v != %v", a, b, ab, ba)
			}
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"one degree of latitude", NewPoint(0, 0), NewPoint(0, 1), 111319.5, 1},
		{"lagos to abuja", luth, national, 535500, 3000},
		{"antipodes", luth, antipodeOf, math.Pi * EarthRadius, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance = %.1f, want %.1f ± %.1f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestNearestOrderingAndTies(t *testing.T) {
	origin := NewPoint(0, 0)
	candidates := []Candidate{
		{ID: 5, Location: NewPoint(0, 0.02)},
		{ID: 2, Location: NewPoint(0, 0.01)},
		{ID: 1, Location: NewPoint(0.01, 0)},
		{ID: 9, Location: NewPoint(0, 0.005)},
	}

	got := Nearest(origin, candidates, 3)
	wantIDs := []int64{9, 1, 2}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d results, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: got id %d, want %d", i, got[i].ID, id)
		}
	}

	if all := Nearest(origin, candidates, 0); len(all) != len(candidates) {
		t.Errorf("k=0 returned %d, want all %d", len(all), len(candidates))
	}
}

func TestWithinRadius(t *testing.T) {
	origin := NewPoint(0, 0)
	candidates := []Candidate{
		{ID: 1, Location: NewPoint(0, 0.001)}, // ~111 m
		{ID: 2, Location: NewPoint(0, 0.1)},   // ~11 km
	}

	got := WithinRadius(origin, candidates, 1000)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("WithinRadius = %+v, want only id 1", got)
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	a, b := luth, national
	if got := Interpolate(a, b, 0); got != a {
		t.Errorf("fraction 0 = %v, want %v", got, a)
	}
	if got := Interpolate(a, b, 1); got != b {
		t.Errorf("fraction 1 = %v, want %v", got, b)
	}
	mid := Interpolate(a, b, 0.5)
	if math.Abs(mid.Lng-(a.Lng+b.Lng)/2) > 1e-12 || math.Abs(mid.Lat-(a.Lat+b.Lat)/2) > 1e-12 {
		t.Errorf("fraction 0.5 = %v", mid)
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	min, max := BoundingBox(luth, 10000)
	edge := NewPoint(luth.Lng, luth.Lat+0.089) // just under 10 km north
	if edge.Lat > max.Lat || edge.Lat < min.Lat {
		t.Errorf("box %v..%v does not contain %v", min, max, edge)
	}
	if CrossesAntimeridian(min, max) {
		t.Errorf("box %v..%v around lagos reported as crossing the antimeridian", min, max)
	}

	min, max = BoundingBox(NewPoint(179.95, -16.5), 20000)
	if !CrossesAntimeridian(min, max) {
		t.Errorf("box %v..%v near longitude 180 should wrap", min, max)
	}
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"lagos", luth, false},
		{"corner", NewPoint(-180, 90), false},
		{"longitude too large", NewPoint(180.5, 0), true},
		{"latitude too small", NewPoint(0, -90.1), true},
		{"nan longitude", NewPoint(math.NaN(), 6.5), true},
		{"nan latitude", NewPoint(3.4, math.NaN()), true},
		{"infinite latitude", NewPoint(3.4, math.Inf(1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) = %v, wantErr %v", tt.p, err, tt.wantErr)
			}
		})
	}
}

func TestPointJSON(t *testing.T) {
	data, err := json.Marshal(luth)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"Point","coordinates":[3.3792,6.4969]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"type":"Point","coordinates":[7.4951,9.0579]}`, false},
		{"type omitted", `{"coordinates":[7.4951,9.0579]}`, false},
		{"wrong type", `{"type":"LineString","coordinates":[1,2]}`, true},
		{"one coordinate", `{"type":"Point","coordinates":[1]}`, true},
		{"latitude out of range", `{"type":"Point","coordinates":[1,95]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point
			err := json.Unmarshal([]byte(tt.input), &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal(%s) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadius is the radius in meters distances are computed on.
const EarthRadius = orb.EarthRadius

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}
	d := orbgeo.DistanceHaversine(a.Orb(), b.Orb())
	if math.IsNaN(d) {
		// rounding pushes the haversine term past 1 at the antipode
		return math.Pi * EarthRadius
	}
	return d
}

// Interpolate returns the point at fraction along the straight lon/lat line
// from a to b. Fractions at or beyond the ends return the end points exactly.
func Interpolate(a, b Point, fraction float64) Point {
	switch {
	case fraction <= 0:
		return a
	case fraction >= 1:
		return b
	}
	return Point{
		Lng: a.Lng + (b.Lng-a.Lng)*fraction,
		Lat: a.Lat + (b.Lat-a.Lat)*fraction,
	}
}

// BoundingBox returns the lon/lat rectangle that contains every point within
// radius meters of center. A box crossing the antimeridian has min.Lng
// greater than max.Lng.
func BoundingBox(center Point, radius float64) (min, max Point) {
	b := orbgeo.NewBoundAroundPoint(center.Orb(), radius)
	return FromOrb(b.Min), FromOrb(b.Max)
}

// CrossesAntimeridian reports whether a box from BoundingBox wraps past
// longitude 180.
func CrossesAntimeridian(min, max Point) bool {
	return min.Lng > max.Lng
}

// Candidate is an identified location considered by the ranking helpers.
type Candidate struct {
	ID       int64
	Location Point
}

// Ranked is a Candidate annotated with its distance from the query origin.
type Ranked struct {
	Candidate
	Meters float64
}

// Nearest ranks candidates by ascending distance from origin, breaking ties
// by ascending id, and returns at most k of them. k <= 0 returns all.
func Nearest(origin Point, candidates []Candidate, k int) []Ranked {
	ranked := rank(origin, candidates, math.Inf(1))
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// WithinRadius returns the candidates at most radius meters from origin,
// ordered by distance.
func WithinRadius(origin Point, candidates []Candidate, radius float64) []Ranked {
	return rank(origin, candidates, radius)
}

func rank(origin Point, candidates []Candidate, limit float64) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		d := Distance(origin, c.Location)
		if d > limit {
			continue
		}
		out = append(out, Ranked{Candidate: c, Meters: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Meters != out[j].Meters {
			return out[i].Meters < out[j].Meters
		}
		return out[i].ID < out[j].ID
	})
	return out
}

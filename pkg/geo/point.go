// Package geo provides distance and ranking helpers over lon/lat points.
package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Point is a WGS84 coordinate. It is encoded as a GeoJSON Point.
type Point struct {
	Lng float64
	Lat float64
}

// NewPoint returns a Point at the given longitude and latitude.
func NewPoint(lng, lat float64) Point {
	return Point{Lng: lng, Lat: lat}
}

// FromOrb converts an orb point.
func FromOrb(p orb.Point) Point {
	return Point{Lng: p.Lon(), Lat: p.Lat()}
}

// Orb returns p as an orb point.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Validate reports whether the coordinates are finite and within range.
func (p Point) Validate() error {
	if !finite(p.Lng) || !finite(p.Lat) {
		return fmt.Errorf("coordinates %v, %v are not finite", p.Lng, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lng, p.Lat)
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(p.Orb()))
}

var pointType = orb.Point{}.GeoJSONType()

// pointJSON accepts a bare coordinates object, which geojson.Geometry rejects,
// and keeps the coordinate count so short arrays are not zero filled.
type pointJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var g pointJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	if g.Type != "" && g.Type != pointType {
		return fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	if len(g.Coordinates) != 2 {
		return fmt.Errorf("point needs exactly 2 coordinates, got %d", len(g.Coordinates))
	}
	pt := Point{Lng: g.Coordinates[0], Lat: g.Coordinates[1]}
	if err := pt.Validate(); err != nil {
		return err
	}
	*p = pt
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

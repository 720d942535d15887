package model

import (
	"time"

	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

// AmbulanceDistance is an ambulance ranked by distance from a query point.
type AmbulanceDistance struct {
	ID               int64           `json:"id"`
	CallSign         string          `json:"callSign"`
	Status           AmbulanceStatus `json:"status"`
	EquipmentLevel   EquipmentLevel  `json:"equipmentLevel"`
	VehicleType      string          `json:"vehicleType,omitempty"`
	Location         geo.Point       `json:"location"`
	DistanceMeters   float64         `json:"distanceMeters"`
	DistanceKm       float64         `json:"distanceKm"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
}

// HospitalDistance is a hospital ranked by distance from a query point.
type HospitalDistance struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Capacity         int            `json:"capacity"`
	Services         []string       `json:"services"`
	Status           HospitalStatus `json:"status"`
	Location         geo.Point      `json:"location"`
	DistanceMeters   float64        `json:"distanceMeters"`
	DistanceKm       float64        `json:"distanceKm"`
	EstimatedMinutes int            `json:"estimatedMinutes"`
}

// NearestAmbulances is the answer to a nearest-to-hospital query.
type NearestAmbulances struct {
	HospitalID   int64               `json:"hospitalId"`
	HospitalName string              `json:"hospitalName"`
	Ambulances   []AmbulanceDistance `json:"ambulances"`
	CalculatedAt time.Time           `json:"calculatedAt"`
	FromCache    bool                `json:"fromCache"`
}

// AmbulancesInRadius is the answer to a within-radius query.
type AmbulancesInRadius struct {
	HospitalID int64               `json:"hospitalId"`
	Radius     float64             `json:"radius"`
	Ambulances []AmbulanceDistance `json:"ambulances"`
	Total      int                 `json:"total"`
}

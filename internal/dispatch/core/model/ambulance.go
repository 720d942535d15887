package model

import (
	"fmt"
	"time"

	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

// AmbulanceStatus is the dispatch availability of an ambulance.
type AmbulanceStatus string

const (
	AmbulanceAvailable AmbulanceStatus = "available"
	AmbulanceBusy      AmbulanceStatus = "busy"
	AmbulanceOffline   AmbulanceStatus = "offline"
)

// ParseAmbulanceStatus validates s as an AmbulanceStatus.
func ParseAmbulanceStatus(s string) (AmbulanceStatus, error) {
	switch st := AmbulanceStatus(s); st {
	case AmbulanceAvailable, AmbulanceBusy, AmbulanceOffline:
		return st, nil
	}
	return "", fmt.Errorf("unknown ambulance status %q", s)
}

// EquipmentLevel describes the care an ambulance crew can provide.
type EquipmentLevel string

const (
	EquipmentBasic        EquipmentLevel = "basic"
	EquipmentAdvanced     EquipmentLevel = "advanced"
	EquipmentCriticalCare EquipmentLevel = "critical_care"
)

// Ambulance is a dispatchable vehicle. Ambulances are never deleted, only
// moved between statuses.
type Ambulance struct {
	ID                 int64           `json:"id"`
	CallSign           string          `json:"callSign"`
	Location           *geo.Point      `json:"location"`
	Status             AmbulanceStatus `json:"status"`
	AssignedHospitalID *int64          `json:"assignedHospitalId"`
	EquipmentLevel     EquipmentLevel  `json:"equipmentLevel"`
	VehicleType        string          `json:"vehicleType,omitempty"`
	LastUpdated        time.Time       `json:"lastUpdated"`
}

// Clone returns a deep copy of a.
func (a *Ambulance) Clone() *Ambulance {
	if a == nil {
		return nil
	}
	c := *a
	if a.Location != nil {
		loc := *a.Location
		c.Location = &loc
	}
	if a.AssignedHospitalID != nil {
		id := *a.AssignedHospitalID
		c.AssignedHospitalID = &id
	}
	return &c
}

// MovementRecord is one entry of an ambulance's location history.
type MovementRecord struct {
	AmbulanceID int64     `json:"ambulanceId"`
	Location    geo.Point `json:"location"`
	Speed       *float64  `json:"speed,omitempty"`
	Heading     *float64  `json:"heading,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// SimulationProgress is a point-in-time view of a running movement simulation.
type SimulationProgress struct {
	AmbulanceID     int64     `json:"ambulanceId"`
	Progress        float64   `json:"progress"`
	CurrentStep     int       `json:"currentStep"`
	TotalSteps      int       `json:"totalSteps"`
	ETASeconds      float64   `json:"eta"`
	RemainingMeters float64   `json:"remainingMeters"`
	SpeedKmh        float64   `json:"speedKmh"`
	DistanceMeters  float64   `json:"distanceMeters"`
	Target          geo.Point `json:"targetLocation"`
	StartedAt       time.Time `json:"startedAt"`
}

// Package store holds the demo data shared by the storage backends.
package store

import (
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

type hospitalSeed struct {
	name     string
	lng, lat float64
	capacity int
	services []string
}

type ambulanceSeed struct {
	callSign string
	lng, lat float64
	level    model.EquipmentLevel
}

var hospitalSeeds = []hospitalSeed{
	{"Lagos University Teaching Hospital (LUTH)", 3.3792, 6.4969, 761, []string{"trauma", "cardiac", "pediatric", "general"}},
	{"National Hospital Abuja", 7.4951, 9.0579, 500, []string{"trauma", "cardiac", "general"}},
	{"University College Hospital (UCH) Ibadan", 3.8964, 7.3878, 850, []string{"trauma", "cardiac", "pediatric", "general"}},
	{"Aminu Kano Teaching Hospital", 8.5167, 11.9833, 500, []string{"general", "trauma", "pediatric"}},
	{"University of Port Harcourt Teaching Hospital", 7.0219, 4.8906, 650, []string{"trauma", "cardiac", "general"}},
	{"Obafemi Awolowo University Teaching Hospital, Ile-Ife", 4.56, 7.48, 550, []string{"trauma", "general", "pediatric"}},
	{"University of Benin Teaching Hospital (UBTH)", 5.6257, 6.3381, 600, []string{"trauma", "cardiac", "general"}},
	{"Ahmadu Bello University Teaching Hospital, Zaria", 7.7063, 11.0799, 500, []string{"general", "trauma", "cardiac"}},
	{"Federal Medical Centre, Asaba", 6.7371, 6.1988, 350, []string{"general", "pediatric"}},
	{"Nnamdi Azikiwe University Teaching Hospital, Nnewi", 6.9179, 6.0194, 400, []string{"trauma", "general", "pediatric"}},
	{"Eko Hospital, Lagos", 3.4219, 6.4433, 250, []string{"cardiac", "general", "trauma"}},
	{"Cedar Crest Hospital, Abuja", 7.4912, 9.082, 200, []string{"general", "cardiac"}},
}

var ambulanceSeeds = []ambulanceSeed{
	{"LASG-AMB-001", 3.3792, 6.5244, model.EquipmentAdvanced},
	{"LASG-AMB-002", 3.405, 6.4698, model.EquipmentBasic},
	{"LASG-AMB-003", 3.3515, 6.6018, model.EquipmentCriticalCare},
	{"FCT-AMB-001", 7.4906, 9.0579, model.EquipmentAdvanced},
	{"FCT-AMB-002", 7.5243, 9.082, model.EquipmentBasic},
	{"PH-AMB-001", 7.0219, 4.8156, model.EquipmentAdvanced},
	{"KANO-AMB-001", 8.5919, 12.0022, model.EquipmentBasic},
	{"IBD-AMB-001", 3.947, 7.3775, model.EquipmentAdvanced},
	{"BENUE-AMB-001", 5.6257, 6.335, model.EquipmentBasic},
	{"ENUGU-AMB-001", 7.4912, 6.4411, model.EquipmentAdvanced},
}

// DemoHospitals returns the demo hospitals with ids starting at 1.
func DemoHospitals() []*model.Hospital {
	out := make([]*model.Hospital, 0, len(hospitalSeeds))
	for i, s := range hospitalSeeds {
		out = append(out, &model.Hospital{
			ID:       int64(i + 1),
			Name:     s.name,
			Location: geo.NewPoint(s.lng, s.lat),
			Capacity: s.capacity,
			Services: append([]string(nil), s.services...),
			Status:   model.HospitalOperational,
		})
	}
	return out
}

// DemoAmbulances returns the demo fleet, all available, with ids starting at 1.
func DemoAmbulances(now time.Time) []*model.Ambulance {
	out := make([]*model.Ambulance, 0, len(ambulanceSeeds))
	for i, s := range ambulanceSeeds {
		loc := geo.NewPoint(s.lng, s.lat)
		out = append(out, &model.Ambulance{
			ID:             int64(i + 1),
			CallSign:       s.callSign,
			Location:       &loc,
			Status:         model.AmbulanceAvailable,
			EquipmentLevel: s.level,
			VehicleType:    "ambulance",
			LastUpdated:    now,
		})
	}
	return out
}

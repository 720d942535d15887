package model

import (
	"fmt"

	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

// HospitalStatus is the intake status of a hospital.
type HospitalStatus string

const (
	HospitalOperational HospitalStatus = "operational"
	HospitalLimited     HospitalStatus = "limited"
	HospitalClosed      HospitalStatus = "closed"
)

// ParseHospitalStatus validates s as a HospitalStatus.
func ParseHospitalStatus(s string) (HospitalStatus, error) {
	switch st := HospitalStatus(s); st {
	case HospitalOperational, HospitalLimited, HospitalClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown hospital status %q", s)
}

// Hospital is a read-mostly destination for patients.
type Hospital struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Location geo.Point      `json:"location"`
	Capacity int            `json:"capacity"`
	Services []string       `json:"services"`
	Status   HospitalStatus `json:"status"`
}

func (h *Hospital) Clone() *Hospital {
	if h == nil {
		return nil
	}
	c := *h
	c.Services = append([]string(nil), h.Services...)
	return &c
}

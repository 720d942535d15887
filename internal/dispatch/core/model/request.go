package model

import (
	"fmt"
	"time"

	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

// RequestStatus is a state of the emergency request lifecycle.
type RequestStatus string

const (
	RequestPending        RequestStatus = "pending"
	RequestAccepted       RequestStatus = "accepted"
	RequestEnRouteToUser  RequestStatus = "en_route_to_user"
	RequestAtUserLocation RequestStatus = "at_user_location"
	RequestTransporting   RequestStatus = "transporting"
	RequestAtHospital     RequestStatus = "at_hospital"
	RequestCompleted      RequestStatus = "completed"
	RequestDeclined       RequestStatus = "declined"
	RequestCancelled      RequestStatus = "cancelled"
)

// RequestStatuses lists every status in lifecycle order.
var RequestStatuses = []RequestStatus{
	RequestPending,
	RequestAccepted,
	RequestEnRouteToUser,
	RequestAtUserLocation,
	RequestTransporting,
	RequestAtHospital,
	RequestCompleted,
	RequestDeclined,
	RequestCancelled,
}

// ParseRequestStatus validates s as a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, error) {
	for _, st := range RequestStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// Terminal reports whether no further transitions are expected from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestDeclined || s == RequestCancelled
}

// EmergencyRequest is a call for an ambulance at a user's location.
// Requests are retained after they close.
type EmergencyRequest struct {
	ID                   int64         `json:"id"`
	UserLocation         geo.Point     `json:"userLocation"`
	Status               RequestStatus `json:"status"`
	HospitalID           *int64        `json:"hospitalId"`
	AmbulanceID          *int64        `json:"ambulanceId"`
	RequestedAmbulanceID *int64        `json:"requestedAmbulanceId,omitempty"`
	// AmbulanceReserved is set while this request holds its ambulance BUSY.
	AmbulanceReserved bool       `json:"ambulanceReserved"`
	DeclineReason     *string    `json:"declineReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	AcceptedAt        *time.Time `json:"acceptedAt,omitempty"`
	DeclinedAt        *time.Time `json:"declinedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
}

// Clone returns a deep copy of r.
func (r *EmergencyRequest) Clone() *EmergencyRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.HospitalID = cloneInt64(r.HospitalID)
	c.AmbulanceID = cloneInt64(r.AmbulanceID)
	c.RequestedAmbulanceID = cloneInt64(r.RequestedAmbulanceID)
	if r.DeclineReason != nil {
		s := *r.DeclineReason
		c.DeclineReason = &s
	}
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.DeclinedAt = cloneTime(r.DeclinedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

// RequestFilter selects a page of requests, newest first.
type RequestFilter struct {
	Status      *RequestStatus
	AmbulanceID *int64
	Page        int
	Limit       int
}

// Offset returns the zero-based index of the first row of the page.
func (f RequestFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// RequestPage is one page of a request listing.
type RequestPage struct {
	Items []*EmergencyRequest `json:"data"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

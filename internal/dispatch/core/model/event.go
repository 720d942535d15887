package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

// Event topics. Each topic has exactly one payload type, see NewPayload.
// Payloads always travel as pointers.
const (
	TopicAmbulanceLocation = "ambulance.location.updated"
	TopicAmbulanceStatus   = "ambulance.status.changed"
	TopicRequestCreated    = "request.created"
	TopicRequestAccepted   = "request.accepted"
	TopicRequestStatus     = "request.status"
	TopicRequestCancelled  = "request.cancelled"
	TopicRequestCompleted  = "request.completed"
)

// Topics lists every topic the dispatch core publishes.
var Topics = []string{
	TopicAmbulanceLocation,
	TopicAmbulanceStatus,
	TopicRequestCreated,
	TopicRequestAccepted,
	TopicRequestStatus,
	TopicRequestCancelled,
	TopicRequestCompleted,
}

// Event is the envelope of a domain event.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Topic     string    `json:"topic"`
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// LocationChanged is published on TopicAmbulanceLocation.
type LocationChanged struct {
	AmbulanceID      int64      `json:"ambulanceId"`
	CallSign         string     `json:"callSign"`
	Location         geo.Point  `json:"location"`
	PreviousLocation *geo.Point `json:"previousLocation,omitempty"`
	DistanceMoved    *float64   `json:"distanceMoved,omitempty"`
	Speed            *float64   `json:"speed,omitempty"`
	Heading          *float64   `json:"heading,omitempty"`
}

// StatusChanged is published on TopicAmbulanceStatus.
type StatusChanged struct {
	AmbulanceID        int64           `json:"ambulanceId"`
	CallSign           string          `json:"callSign"`
	PreviousStatus     AmbulanceStatus `json:"previousStatus"`
	NewStatus          AmbulanceStatus `json:"newStatus"`
	AssignedHospitalID *int64          `json:"assignedHospitalId,omitempty"`
}

// RequestChanged is published on every request topic.
type RequestChanged struct {
	Request        *EmergencyRequest `json:"request"`
	PreviousStatus RequestStatus     `json:"previousStatus,omitempty"`
}

// NewPayload returns a pointer to an empty payload for topic, suitable for
// decoding. ok is false for unknown topics.
func NewPayload(topic string) (payload any, ok bool) {
	switch topic {
	case TopicAmbulanceLocation:
		return &LocationChanged{}, true
	case TopicAmbulanceStatus:
		return &StatusChanged{}, true
	case TopicRequestCreated, TopicRequestAccepted, TopicRequestStatus,
		TopicRequestCancelled, TopicRequestCompleted:
		return &RequestChanged{}, true
	}
	return nil, false
}

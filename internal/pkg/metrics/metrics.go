package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DispatchTotal counts ambulance reservation attempts.
	// result: success / conflict / not_found / error
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_dispatch_total",
			Help: "Total number of ambulance dispatch attempts by outcome.",
		},
		[]string{"result"},
	)

	// RequestTransitions counts emergency request status changes.
	RequestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_request_transitions_total",
			Help: "Total number of emergency request status transitions.",
		},
		[]string{"from", "to"},
	)

	// ProximityCache counts ranker cache lookups. result: hit / miss
	ProximityCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_proximity_cache_total",
			Help: "Proximity cache lookups by result.",
		},
		[]string{"result"},
	)

	// ProximityInvalidations counts cache invalidations. reason: location / status / manual
	ProximityInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_proximity_invalidations_total",
			Help: "Proximity cache invalidations by reason.",
		},
		[]string{"reason"},
	)

	// ActiveSimulations is the number of movement simulations in flight.
	ActiveSimulations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rapidaid_active_simulations",
			Help: "Number of ambulance movement simulations currently running.",
		},
	)

	// EventsPublished counts broadcaster publishes. result: ok / error
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_events_published_total",
			Help: "Domain events published by topic and transport result.",
		},
		[]string{"topic", "result"},
	)

	// HTTPRequests counts served API requests.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_http_requests_total",
			Help: "HTTP requests served by method, route template and status code.",
		},
		[]string{"method", "route", "code"},
	)

	// LiveClients is the number of connected websocket clients.
	LiveClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rapidaid_live_clients",
			Help: "Number of websocket clients receiving live updates.",
		},
	)

	// IngressEvents counts events received from the broker. result: delivered / malformed
	IngressEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_ingress_events_total",
			Help: "Events received from the event transport by result.",
		},
		[]string{"result"},
	)

	// ArchiveWrites counts audit snapshots written to object storage.
	ArchiveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapidaid_archive_writes_total",
			Help: "Request audit snapshots written to object storage by result.",
		},
		[]string{"result"},
	)
)

// init registers the collectors with the default registry served on /metrics.
func init() {
	prometheus.MustRegister(
		DispatchTotal,
		RequestTransitions,
		ProximityCache,
		ProximityInvalidations,
		ActiveSimulations,
		EventsPublished,
		HTTPRequests,
		LiveClients,
		IngressEvents,
		ArchiveWrites,
	)
}

package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/service"
)

type api struct {
	svc *service.Service
}

// register mounts the REST surface under /api on the root router. Routes are
// flat so that a path match with the wrong method is answered with 405; nested
// subrouters lose the method mismatch to later routes that miss the path.
func (a *api) register(r *mux.Router, mw ...mux.MiddlewareFunc) {
	handle := func(path string, h http.HandlerFunc, method string) {
		var next http.Handler = h
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		r.Handle("/api"+path, next).Methods(method)
	}

	handle("/ambulances", a.listAmbulances, http.MethodGet)
	handle("/ambulances/{id}", a.getAmbulance, http.MethodGet)
	handle("/ambulances/{id}/location", a.updateLocation, http.MethodPatch)
	handle("/ambulances/{id}/dispatch", a.dispatchAmbulance, http.MethodPatch)
	handle("/ambulances/{id}/complete", a.completeAssignment, http.MethodPatch)
	handle("/ambulances/{id}/status", a.setAmbulanceStatus, http.MethodPatch)
	handle("/ambulances/{id}/simulate-movement", a.startSimulation, http.MethodPatch)
	handle("/ambulances/{id}/simulate-movement", a.stopSimulation, http.MethodDelete)
	handle("/ambulances/{id}/teleport", a.teleport, http.MethodPatch)
	handle("/ambulances/{id}/simulation-progress", a.simulationProgress, http.MethodGet)

	handle("/hospitals", a.listHospitals, http.MethodGet)
	handle("/hospitals/{id}", a.getHospital, http.MethodGet)

	handle("/proximity/hospital/{id}/nearest", a.nearestForHospital, http.MethodGet)
	handle("/proximity/hospital/{id}/within-radius", a.withinRadius, http.MethodGet)
	handle("/proximity/nearest-hospitals", a.nearestHospitals, http.MethodPost)
	handle("/proximity/nearest-ambulances", a.nearestAmbulances, http.MethodPost)
	handle("/proximity/cache", a.invalidateCache, http.MethodDelete)

	handle("/requests", a.createRequest, http.MethodPost)
	handle("/requests", a.listRequests, http.MethodGet)
	handle("/requests/pending-count", a.pendingCount, http.MethodGet)
	handle("/requests/{id}", a.getRequest, http.MethodGet)
	handle("/requests/{id}", a.cancelRequest, http.MethodDelete)
	handle("/requests/{id}/accept", a.acceptRequest, http.MethodPatch)
	handle("/requests/{id}/decline", a.declineRequest, http.MethodPatch)
	handle("/requests/{id}/status", a.updateRequestStatus, http.MethodPatch)
}

package http

import (
	"net/http"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

type locationBody struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
}

type targetBody struct {
	TargetLongitude *float64 `json:"targetLongitude"`
	TargetLatitude  *float64 `json:"targetLatitude"`
	SpeedKmh        *float64 `json:"speedKmh"`
}

type dispatchBody struct {
	HospitalID *int64 `json:"hospitalId"`
}

type ambulanceStatusBody struct {
	Status model.AmbulanceStatus `json:"status"`
}

type stoppedBody struct {
	AmbulanceID int64 `json:"ambulanceId"`
	Stopped     bool  `json:"stopped"`
}

func point(lng, lat *float64, lngName, latName string) (geo.Point, error) {
	if lng == nil || lat == nil {
		return geo.Point{}, util.Validation("%s and %s are required", lngName, latName)
	}
	return geo.NewPoint(*lng, *lat), nil
}

func (a *api) listAmbulances(w http.ResponseWriter, r *http.Request) {
	var status model.AmbulanceStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := model.ParseAmbulanceStatus(raw)
		if err != nil {
			writeError(w, r, util.Validation("%v", err))
			return
		}
		status = st
	}

	list, err := a.svc.Registry.List(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[*model.Ambulance]{Data: list, Total: len(list)})
}

func (a *api) getAmbulance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amb, err := a.svc.Registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amb)
}

func (a *api) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body locationBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := point(body.Longitude, body.Latitude, "longitude", "latitude")
	if err != nil {
		writeError(w, r, err)
		return
	}

	amb, err := a.svc.Registry.UpdateLocation(r.Context(), id, p, body.Speed, body.Heading)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amb)
}

func (a *api) dispatchAmbulance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body dispatchBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.HospitalID == nil {
		writeError(w, r, util.Validation("hospitalId is required"))
		return
	}

	amb, err := a.svc.Registry.Dispatch(r.Context(), id, *body.HospitalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amb)
}

func (a *api) completeAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amb, err := a.svc.Registry.CompleteAssignment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amb)
}

func (a *api) setAmbulanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body ambulanceStatusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	amb, err := a.svc.Registry.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amb)
}

func (a *api) startSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body targetBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	target, err := point(body.TargetLongitude, body.TargetLatitude, "targetLongitude", "targetLatitude")
	if err != nil {
		writeError(w, r, err)
		return
	}
	speed := a.svc.Tunables().DefaultSpeedKmh
	if body.SpeedKmh != nil {
		speed = *body.SpeedKmh
	}

	progress, err := a.svc.Registry.StartMovementSimulation(r.Context(), id, target, speed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (a *api) stopSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := a.svc.Registry.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stoppedBody{AmbulanceID: id, Stopped: a.svc.Registry.StopMovementSimulation(id)})
}

func (a *api) teleport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body targetBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := point(body.TargetLongitude, body.TargetLatitude, "targetLongitude", "targetLatitude")
	if err != nil {
		writeError(w, r, err)
		return
	}

	amb, err := a.svc.Registry.Teleport(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amb)
}

func (a *api) simulationProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress, ok := a.svc.Registry.SimulationProgress(id)
	if !ok {
		writeError(w, r, util.NotFound("simulation", id))
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

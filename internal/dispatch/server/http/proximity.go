package http

import (
	"net/http"
	"strconv"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
)

const (
	defaultNearestLimit = 3
	maxPointLimit       = 10
	defaultRadius       = 5000
)

type pointQueryBody struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Limit     *int     `json:"limit"`
}

type invalidatedBody struct {
	HospitalID  *int64 `json:"hospitalId,omitempty"`
	Invalidated int    `json:"invalidated"`
}

func (b *pointQueryBody) limit() int {
	if b.Limit == nil || *b.Limit < 1 {
		return defaultNearestLimit
	}
	return min(*b.Limit, maxPointLimit)
}

func (a *api) nearestForHospital(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultNearestLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.svc.Ranker.NearestAmbulancesForHospital(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) withinRadius(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radius", defaultRadius)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.svc.Ranker.AmbulancesWithinRadius(r.Context(), id, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) nearestHospitals(w http.ResponseWriter, r *http.Request) {
	var body pointQueryBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := point(body.Longitude, body.Latitude, "longitude", "latitude")
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := a.svc.Ranker.NearestHospitalsToPoint(r.Context(), p, body.limit())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[model.HospitalDistance]{Data: list, Total: len(list)})
}

func (a *api) nearestAmbulances(w http.ResponseWriter, r *http.Request) {
	var body pointQueryBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := point(body.Longitude, body.Latitude, "longitude", "latitude")
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := a.svc.Ranker.NearestAmbulancesToPoint(r.Context(), p, body.limit())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[model.AmbulanceDistance]{Data: list, Total: len(list)})
}

func (a *api) invalidateCache(w http.ResponseWriter, r *http.Request) {
	var hospitalID *int64
	if raw := r.URL.Query().Get("hospitalId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, util.Validation("invalid hospitalId %q", raw))
			return
		}
		hospitalID = &id
	}
	writeJSON(w, http.StatusOK, invalidatedBody{HospitalID: hospitalID, Invalidated: a.svc.Ranker.Invalidate(hospitalID)})
}

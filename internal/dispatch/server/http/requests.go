package http

import (
	"net/http"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
)

type createRequestBody struct {
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
	AmbulanceID *int64   `json:"ambulanceId"`
	HospitalID  *int64   `json:"hospitalId"`
}

type acceptBody struct {
	HospitalID *int64 `json:"hospitalId"`
}

type declineBody struct {
	Reason *string `json:"reason"`
}

type requestStatusBody struct {
	Status model.RequestStatus `json:"status"`
}

type pendingCountBody struct {
	Count int `json:"count"`
}

func (a *api) createRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := point(body.Longitude, body.Latitude, "longitude", "latitude")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if body.AmbulanceID == nil {
		writeError(w, r, util.Validation("ambulanceId is required"))
		return
	}

	req, err := a.svc.Lifecycle.Create(r.Context(), p, *body.AmbulanceID, body.HospitalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *api) listRequests(w http.ResponseWriter, r *http.Request) {
	var filter model.RequestFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := model.ParseRequestStatus(raw)
		if err != nil {
			writeError(w, r, util.Validation("%v", err))
			return
		}
		filter.Status = &st
	}
	var err error
	if filter.Page, err = queryInt(r, "page", 1); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, r, err)
		return
	}

	page, err := a.svc.Lifecycle.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *api) pendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Lifecycle.PendingCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingCountBody{Count: n})
}

func (a *api) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := a.svc.Lifecycle.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *api) acceptRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body acceptBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := a.svc.Lifecycle.Accept(r.Context(), id, body.HospitalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *api) declineRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body declineBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := a.svc.Lifecycle.Decline(r.Context(), id, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *api) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body requestStatusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := a.svc.Lifecycle.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *api) cancelRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := a.svc.Lifecycle.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

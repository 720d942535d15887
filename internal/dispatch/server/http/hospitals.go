package http

import (
	"net/http"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
)

func (a *api) listHospitals(w http.ResponseWriter, r *http.Request) {
	var status model.HospitalStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := model.ParseHospitalStatus(raw)
		if err != nil {
			writeError(w, r, util.Validation("%v", err))
			return
		}
		status = st
	}

	list, err := a.svc.Hospitals(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[*model.Hospital]{Data: list, Total: len(list)})
}

func (a *api) getHospital(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, err := a.svc.Hospital(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

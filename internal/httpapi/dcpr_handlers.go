package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"dcpr.org/internal/dcpr"
)

type listRequestsResponse struct {
	Items []*dcpr.Request `json:"items"`
	AsOf  time.Time       `json:"as_of"`
}

type listActivitiesResponse struct {
	Items []*dcpr.ManagementActivity `json:"items"`
	AsOf  time.Time                  `json:"as_of"`
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var payload dcpr.CreateRequestPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.svc.Create(r.Context(), actorFrom(r), payload)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/dcpr/requests/"+req.ReferenceID)
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) showRequest(w http.ResponseWriter, r *http.Request) {
	req, err := a.svc.Show(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) updateRequest(w http.ResponseWriter, r *http.Request) {
	var payload dcpr.OwnerUpdatePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.svc.UpdateByOwner(r.Context(), actorFrom(r), mux.Vars(r)["id"], payload)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) deleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Delete(r.Context(), actorFrom(r), mux.Vars(r)["id"]); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) submitRequest(w http.ResponseWriter, r *http.Request) {
	req, err := a.svc.Submit(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) reviewUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, ok := reviewBodyVar(vars["body"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown review body")
		return
	}
	var payload dcpr.ReviewUpdatePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.svc.UpdateByReviewer(r.Context(), actorFrom(r), vars["id"], body, payload)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) moderateRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, ok := reviewBodyVar(vars["body"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown review body")
		return
	}
	var payload dcpr.ModeratePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := a.svc.Moderate(r.Context(), actorFrom(r), vars["id"], body, payload)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) claimReviewer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, ok := reviewBodyVar(vars["body"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown review body")
		return
	}
	req, err := a.svc.ClaimReviewer(r.Context(), actorFrom(r), vars["id"], body)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) resignReviewer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, ok := reviewBodyVar(vars["body"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown review body")
		return
	}
	req, err := a.svc.ResignReviewer(r.Context(), actorFrom(r), vars["id"], body)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) listPublic(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.PublicRequests(r.Context())
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listRequestsResponse{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) listMine(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.MyRequests(r.Context(), actorFrom(r))
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listRequestsResponse{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) listPending(w http.ResponseWriter, r *http.Request) {
	body, ok := reviewBodyVar(mux.Vars(r)["body"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown review body")
		return
	}
	items, err := a.svc.PendingReview(r.Context(), actorFrom(r), body)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listRequestsResponse{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) listActivities(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Activities(r.Context(), actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listActivitiesResponse{Items: items, AsOf: time.Now().UTC()})
}

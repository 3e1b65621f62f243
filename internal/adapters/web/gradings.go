package web

import (
	"net/http"

	"palm-weighbridge/internal/app"
)

// apiAttachGrading handles POST /api/gradings.
func (h *Handler) apiAttachGrading(w http.ResponseWriter, r *http.Request) {
	var req app.AttachGradingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Operator = operatorName(r)
	result, err := h.svc.AttachGrading(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiGetGrading handles GET /api/gradings/{id}.
func (h *Handler) apiGetGrading(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetGrading(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUpdateGrading handles PATCH /api/gradings/{id}.
func (h *Handler) apiUpdateGrading(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateGradingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateGrading(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRemoveGrading handles DELETE /api/gradings/{id}.
func (h *Handler) apiRemoveGrading(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.RemoveGrading(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

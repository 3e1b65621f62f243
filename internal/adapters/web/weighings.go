package web

import (
	"net/http"
	"strconv"

	"palm-weighbridge/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiWeighIn handles POST /api/weighings. A body carrying tara records both
// weighings at once; without tara it behaves like /incoming.
func (h *Handler) apiWeighIn(w http.ResponseWriter, r *http.Request) {
	var req app.WeighInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.weighIn(w, r, req)
}

// apiWeighInOnly handles POST /api/weighings/incoming. Any tara in the body is ignored.
func (h *Handler) apiWeighInOnly(w http.ResponseWriter, r *http.Request) {
	var req app.WeighInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Tara = nil
	h.weighIn(w, r, req)
}

func (h *Handler) weighIn(w http.ResponseWriter, r *http.Request, req app.WeighInRequest) {
	req.Operator = operatorName(r)
	result, err := h.svc.WeighIn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiWeighOut handles POST /api/weighings/{id}/outgoing.
func (h *Handler) apiWeighOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.WeighOutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = id
	result, err := h.svc.WeighOut(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUpdateWeighing handles PATCH /api/weighings/{id}.
func (h *Handler) apiUpdateWeighing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateWeighingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateWeighing(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCancelWeighing handles POST /api/weighings/{id}/cancel.
func (h *Handler) apiCancelWeighing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.CancelWeighing(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetWeighing handles GET /api/weighings/{id}.
func (h *Handler) apiGetWeighing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.getWeighing(w, r, strconv.Itoa(id))
}

// apiGetByTicket handles GET /api/weighings/ticket/{ticket}.
func (h *Handler) apiGetByTicket(w http.ResponseWriter, r *http.Request) {
	h.getWeighing(w, r, chi.URLParam(r, "ticket"))
}

func (h *Handler) getWeighing(w http.ResponseWriter, r *http.Request, ref string) {
	result, err := h.svc.GetWeighing(r.Context(), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetByDeliveryOrder handles GET /api/weighings/delivery-order/{ref}.
func (h *Handler) apiGetByDeliveryOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetWeighingByDeliveryOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListPending handles GET /api/weighings/pending.
func (h *Handler) apiListPending(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListWeighings handles GET /api/weighings?status=&vehicle=&from=&to=&limit=.
func (h *Handler) apiListWeighings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.ListWeighingsRequest{
		Status:  q.Get("status"),
		Vehicle: q.Get("vehicle"),
		From:    q.Get("from"),
		To:      q.Get("to"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, "invalid limit", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		req.Limit = n
	}
	result, err := h.svc.ListWeighings(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

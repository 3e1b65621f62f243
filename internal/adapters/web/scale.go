package web

import (
	"net/http"

	"palm-weighbridge/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiRecordReading handles POST /api/scale/{station}/readings from the scale bridge.
func (h *Handler) apiRecordReading(w http.ResponseWriter, r *http.Request) {
	var req app.ScaleReadingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Station = chi.URLParam(r, "station")
	reading, err := h.svc.RecordScaleReading(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, reading)
}

// apiLatestReading handles GET /api/scale/{station}/latest.
func (h *Handler) apiLatestReading(w http.ResponseWriter, r *http.Request) {
	reading, err := h.svc.LatestScaleReading(r.Context(), chi.URLParam(r, "station"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, reading)
}

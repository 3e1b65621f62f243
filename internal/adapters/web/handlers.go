package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"palm-weighbridge/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(h.Identity)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// ── Weighings ─────────────────────────────────────────────────────────
		r.Post("/api/weighings", h.apiWeighIn)
		r.Post("/api/weighings/incoming", h.apiWeighInOnly)
		r.Get("/api/weighings", h.apiListWeighings)
		r.Get("/api/weighings/pending", h.apiListPending)
		r.Get("/api/weighings/ticket/{ticket}", h.apiGetByTicket)
		r.Get("/api/weighings/delivery-order/{ref}", h.apiGetByDeliveryOrder)
		r.Get("/api/weighings/{id}", h.apiGetWeighing)
		r.Patch("/api/weighings/{id}", h.apiUpdateWeighing)
		r.Post("/api/weighings/{id}/outgoing", h.apiWeighOut)
		r.Post("/api/weighings/{id}/cancel", h.apiCancelWeighing)

		// ── Gradings ──────────────────────────────────────────────────────────
		r.Post("/api/gradings", h.apiAttachGrading)
		r.Get("/api/gradings/{id}", h.apiGetGrading)
		r.Patch("/api/gradings/{id}", h.apiUpdateGrading)
		r.Delete("/api/gradings/{id}", h.apiRemoveGrading)

		// ── Reports ───────────────────────────────────────────────────────────
		r.Get("/api/reports/daily", h.apiDailyReport)
		r.Get("/api/reports/monthly", h.apiMonthlyReport)
		r.Get("/api/reports/grading", h.apiGradingReport)
		r.Get("/api/reports/supplier/{ref}", h.apiSupplierReport)

		// ── Scale indicators ──────────────────────────────────────────────────
		r.Post("/api/scale/{station}/readings", h.apiRecordReading)
		r.Get("/api/scale/{station}/latest", h.apiLatestReading)
	})

	h.router = r
	return r
}

// health returns service status and the active company code.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.ActiveCompany(r.Context())
	companyCode := ""
	if err == nil && company != nil {
		companyCode = company.CompanyCode
	}

	type response struct {
		Status  string `json:"status"`
		Company string `json:"company"`
	}

	writeJSON(w, response{Status: "ok", Company: companyCode})
}

// pathID parses the {id} URL parameter, writing a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

package web

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"palm-weighbridge/internal/export"

	"github.com/go-chi/chi/v5"
)

// sendDownload renders into a buffer first so a failed render still gets a
// proper error response instead of a truncated file.
func sendDownload(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}

// apiDailyReport handles GET /api/reports/daily?date=YYYY-MM-DD&format=json|xlsx|csv.
func (h *Handler) apiDailyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.DailyReport(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "xlsx":
		sendDownload(w, r, export.ContentTypeXLSX, export.DailyFilename(report, "xlsx"),
			func(out io.Writer) error { return export.DailyXLSX(out, report) })
	case "csv":
		sendDownload(w, r, export.ContentTypeCSV, export.DailyFilename(report, "csv"),
			func(out io.Writer) error { return export.DailyCSV(out, report) })
	default:
		writeJSON(w, report)
	}
}

// apiMonthlyReport handles GET /api/reports/monthly?year=&month=&format=json|xlsx|csv.
// Omitting both year and month selects the current month.
func (h *Handler) apiMonthlyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month := 0, 0
	if q.Get("year") != "" || q.Get("month") != "" {
		var err1, err2 error
		year, err1 = strconv.Atoi(q.Get("year"))
		month, err2 = strconv.Atoi(q.Get("month"))
		if err1 != nil || err2 != nil {
			writeError(w, r, "year and month must both be integers", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	}
	report, err := h.svc.MonthlyReport(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	switch q.Get("format") {
	case "xlsx":
		sendDownload(w, r, export.ContentTypeXLSX, export.MonthlyFilename(report, "xlsx"),
			func(out io.Writer) error { return export.MonthlyXLSX(out, report) })
	case "csv":
		sendDownload(w, r, export.ContentTypeCSV, export.MonthlyFilename(report, "csv"),
			func(out io.Writer) error { return export.MonthlyCSV(out, report) })
	default:
		writeJSON(w, report)
	}
}

// apiGradingReport handles GET /api/reports/grading?from=&to=.
func (h *Handler) apiGradingReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GradingReport(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiSupplierReport handles GET /api/reports/supplier/{ref}?from=&to=.
func (h *Handler) apiSupplierReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.SupplierReport(r.Context(), chi.URLParam(r, "ref"),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

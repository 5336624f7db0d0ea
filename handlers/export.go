package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"sitediary/export"
	"sitediary/logging"
	"sitediary/service"
)

type ExportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

func NewExportHandler(reports *service.ReportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{reports: reports, logger: logger}
}

// CSV streams the flattened reports in ?from=..?to= as a BOM-prefixed CSV file.
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	reports, err := h.reports.Reports(r.Context(), uid, from, to)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to export reports")
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.FileName("csv", from, to)))
	rows, err := export.WriteCSV(w, reports)
	if err != nil {
		h.logger.Error("failed to write csv", zap.String("user_id", uid), zap.Error(err))
		return
	}
	logging.Audit(h.logger, uid, logging.ActionExport,
		zap.String("format", "csv"), zap.Int("reports", len(reports)), zap.Int("rows", rows))
}

// XLSX returns the same rows as CSV in a spreadsheet.
func (h *ExportHandler) XLSX(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	reports, err := h.reports.Reports(r.Context(), uid, from, to)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to export reports")
		return
	}
	data, err := export.XLSX(reports)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to build spreadsheet")
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.FileName("xlsx", from, to)))
	w.Write(data)
	logging.Audit(h.logger, uid, logging.ActionExport,
		zap.String("format", "xlsx"), zap.Int("reports", len(reports)))
}

// Milestones returns the latest state of each milestone, or of every activity with ?all=true.
func (h *ExportHandler) Milestones(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var entries []export.Entry
	if queryBool(r, "all") {
		entries = h.reports.MasterLog(r.Context(), uid, q.Get("from"), q.Get("to"))
	} else {
		entries = h.reports.Milestones(r.Context(), uid, q.Get("from"), q.Get("to"))
	}
	if entries == nil {
		entries = []export.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Charts returns the per-date series.
func (h *ExportHandler) Charts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{
		"days": h.reports.Series(r.Context(), uid, q.Get("from"), q.Get("to")),
	})
}

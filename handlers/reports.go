package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sitediary/export"
	"sitediary/models"
	"sitediary/service"
)

type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// List returns the activity history filtered by the query string.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	entries := h.reports.History(r.Context(), uid, export.Query{
		From:       q.Get("from"),
		To:         q.Get("to"),
		Text:       q.Get("q"),
		Category:   q.Get("category"),
		Milestones: queryBool(r, "milestones"),
		Sort:       q.Get("sort"),
		Desc:       strings.EqualFold(q.Get("order"), "desc"),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Get returns the report for ?date=. A day without a report is returned empty.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	report, found, err := h.reports.Get(r.Context(), uid, r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to retrieve report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report": report,
		"exists": found,
	})
}

// Save validates and stores a report. A body without "activities" keeps the stored ones.
func (h *ReportHandler) Save(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var report models.DailyReport
	if !decodeJSON(w, r, &report) {
		return
	}
	saved, err := h.reports.Save(r.Context(), uid, &report)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save report")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete removes the report for ?date=.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if err := h.reports.Delete(r.Context(), uid, date); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Report deleted",
		"date":    date,
	})
}

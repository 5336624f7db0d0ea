package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"sitediary/activity"
	"sitediary/models"
	"sitediary/service"
)

type ActivityHandler struct {
	activities *service.ActivityService
	logger     *zap.Logger
	now        func() time.Time
}

func NewActivityHandler(activities *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger, now: time.Now}
}

type AddActivityRequest struct {
	Date     string               `json:"date"`
	Index    *int                 `json:"index"`
	Activity models.ActivityEntry `json:"activity"`
}

// Add inserts an activity. Without an index it is appended.
func (h *ActivityHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req AddActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	report, err := h.activities.Add(r.Context(), uid, req.Date, index, req.Activity)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to add activity")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type ActivityRefRequest struct {
	Date  string `json:"date"`
	ID    string `json:"id"`
	Index int    `json:"index"`
}

// Remove deletes an activity from its report.
func (h *ActivityHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req ActivityRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := h.activities.Remove(r.Context(), uid, req.Date, req.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to remove activity")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Move relocates an activity to req.Index within its report.
func (h *ActivityHandler) Move(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req ActivityRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := h.activities.Move(r.Context(), uid, req.Date, req.ID, req.Index)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to move activity")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type CheckIDRequest struct {
	Date    string              `json:"date"`
	ID      string              `json:"id"`
	Code    string              `json:"code"`
	Current *models.DailyReport `json:"current,omitempty"`
}

// CheckID reports whether a code is free and suggests the next unused one.
func (h *ActivityHandler) CheckID(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req CheckIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.activities.CheckID(r.Context(), uid, activity.Ref{Date: req.Date, ID: req.ID}, req.Code, req.Current)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to check activity id")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type SetIDRequest struct {
	Date         string `json:"date"`
	ID           string `json:"id"`
	Code         string `json:"code"`
	ConfirmShift bool   `json:"confirm_shift"`
}

// SetID assigns a display code. A taken code answers 409 unless confirm_shift is set.
func (h *ActivityHandler) SetID(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req SetIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.activities.SetID(r.Context(), uid, activity.Ref{Date: req.Date, ID: req.ID}, req.Code, req.ConfirmShift)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to set activity id")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Metrics returns derived metrics for ?date=&id=, as of ?as_of= (default today).
func (h *ActivityHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	asOf := h.now()
	if s := q.Get("as_of"); s != "" {
		t, err := time.Parse(models.DateLayout, s)
		if err != nil {
			writeError(w, "as_of must be a YYYY-MM-DD date", http.StatusBadRequest)
			return
		}
		asOf = t
	}
	res, err := h.activities.Metrics(r.Context(), uid, q.Get("date"), q.Get("id"), asOf)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to compute metrics")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"sitediary/models"
	"sitediary/service"
)

type MemoryHandler struct {
	memory *service.MemoryService
	master *service.MasterService
	logger *zap.Logger
}

func NewMemoryHandler(mem *service.MemoryService, master *service.MasterService, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{memory: mem, master: master, logger: logger}
}

// Get returns the user's whole resource memory.
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.memory.Snapshot(r.Context(), uid))
}

type LookupRequest struct {
	Category models.Category `json:"category"`
	Code     string          `json:"code"`
}

// Lookup returns the template remembered for a code.
func (h *MemoryHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req LookupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Category.IsValid() {
		writeError(w, "Unknown category", http.StatusBadRequest)
		return
	}

	mem := h.memory.For(r.Context(), uid)
	var (
		template any
		found    bool
	)
	if req.Category == models.CategoryRisk {
		template, found = mem.LookupRisk(req.Code)
	} else {
		template, found = mem.Lookup(req.Category, req.Code)
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": true, "template": template})
}

// Fill completes the empty fields of an activity's rows from memory.
func (h *MemoryHandler) Fill(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var a models.ActivityEntry
	if !decodeJSON(w, r, &a) {
		return
	}
	n := h.memory.FillActivity(r.Context(), uid, &a)
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": a,
		"filled":   n,
	})
}

type NamesRequest struct {
	Manpower []models.ManpowerEntry `json:"manpower"`
}

// Names looks up (GET ?name=) or remembers (POST) name-keyed manpower templates.
// Remembered names are written after a short quiet period.
func (h *MemoryHandler) Names(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, found := h.memory.For(r.Context(), uid).LookupName(r.URL.Query().Get("name"))
		if !found {
			writeJSON(w, http.StatusOK, map[string]any{"found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"found": true, "template": t})
	case http.MethodPost:
		var req NamesRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n := h.memory.RememberNames(r.Context(), uid, req.Manpower)
		writeJSON(w, http.StatusAccepted, map[string]int{"remembered": n})
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Sync copies the master-data catalog into memory.
func (h *MemoryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	counts, err := h.master.Sync(r.Context(), uid)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to sync master data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"synced": counts})
}

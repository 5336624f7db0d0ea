package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"sitediary/models"
	"sitediary/service"
)

type MasterHandler struct {
	master *service.MasterService
	logger *zap.Logger
}

func NewMasterHandler(master *service.MasterService, logger *zap.Logger) *MasterHandler {
	return &MasterHandler{master: master, logger: logger}
}

// List returns the catalog for ?category=.
func (h *MasterHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	items, err := h.master.List(r.Context(), uid, models.Category(r.URL.Query().Get("category")))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to retrieve master data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (h *MasterHandler) Save(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var item models.MasterDataItem
	if !decodeJSON(w, r, &item) {
		return
	}
	saved, err := h.master.Save(r.Context(), uid, &item)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save master data")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete removes ?category=&code=.
func (h *MasterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if err := h.master.Delete(r.Context(), uid, models.Category(q.Get("category")), q.Get("code")); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete master data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted"})
}

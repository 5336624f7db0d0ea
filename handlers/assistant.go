package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"sitediary/service"
)

type AssistantHandler struct {
	assistant *service.AssistantService
	logger    *zap.Logger
}

func NewAssistantHandler(assistant *service.AssistantService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: logger}
}

// Summary answers a prompt about the user's reports. Completion failures
// still return 200 with the fallback text.
func (h *AssistantHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req service.SummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.assistant.Summarize(r.Context(), uid, req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to summarize reports")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"sitediary/middleware"
	"sitediary/service"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 20

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// userID returns the authenticated user's ID or writes a 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return "", false
	}
	return user.UserID, true
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected errors
// are logged and reported as 500 with msg.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, msg string) {
	var ve *service.ValidationError
	var ce *service.ConflictError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     ce.Error(),
			"code":      ce.Code,
			"conflicts": ce.Conflicts,
			"suggested": ce.Suggested,
		})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    ErrValidationMessage,
			"problems": ve.Problems,
		})
	case errors.Is(err, service.ErrValidation):
		writeError(w, err.Error(), http.StatusBadRequest)
	case service.IsNotFound(err):
		writeError(w, "Not found", http.StatusNotFound)
	default:
		logger.Error(msg, zap.Error(err))
		writeError(w, msg, http.StatusInternalServerError)
	}
}

// ErrValidationMessage is the error text of a 400 carrying validation problems.
const ErrValidationMessage = "Validation failed"

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

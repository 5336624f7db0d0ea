package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sitediary/auth"
	"sitediary/db"
	"sitediary/logging"
	"sitediary/models"
)

type SessionHandler struct {
	store      db.Store
	verifier   auth.Verifier
	jwtManager *auth.JWTManager
	logger     *zap.Logger
	now        func() time.Time
}

func NewSessionHandler(store db.Store, verifier auth.Verifier, jwtManager *auth.JWTManager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:      store,
		verifier:   verifier,
		jwtManager: jwtManager,
		logger:     logger,
		now:        time.Now,
	}
}

type SessionRequest struct {
	IDToken string `json:"id_token"`
}

type SessionResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// CreateSession exchanges an identity-provider ID token for session tokens
// and records the user's profile.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		writeError(w, "id_token is required", http.StatusBadRequest)
		return
	}
	if h.verifier == nil {
		writeError(w, "Sign-in is not configured", http.StatusServiceUnavailable)
		return
	}

	id, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.logger.Info("identity token rejected", zap.Error(err))
		writeError(w, "Invalid identity token", http.StatusUnauthorized)
		return
	}

	now := h.now().UTC()
	user, err := h.store.GetUser(r.Context(), id.UID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		user = &models.User{UserID: id.UID, CreatedAt: now}
	case err != nil:
		h.logger.Error("failed to load user profile", zap.String("user_id", id.UID), zap.Error(err))
		writeError(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	user.Email = id.Email
	user.EmailVerified = id.EmailVerified
	if id.Name != "" {
		user.DisplayName = id.Name
	}
	user.LastLogin = now
	if err := h.store.UpsertUser(r.Context(), user); err != nil {
		h.logger.Warn("failed to update user profile", zap.String("user_id", user.UserID), zap.Error(err))
	}

	h.issue(w, user)
	logging.Audit(h.logger, user.UserID, logging.ActionSession, zap.Bool("email_verified", user.EmailVerified))
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken issues a new token pair from a valid refresh token.
func (h *SessionHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken, auth.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error("failed to load user profile", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		writeError(w, "User not found", http.StatusUnauthorized)
		return
	}

	h.issue(w, user)
}

func (h *SessionHandler) issue(w http.ResponseWriter, user *models.User) {
	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("user_id", user.UserID), zap.Error(err))
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		h.logger.Error("failed to generate refresh token", zap.String("user_id", user.UserID), zap.Error(err))
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Token: token, RefreshToken: refreshToken, User: user})
}

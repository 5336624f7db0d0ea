package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sitediary/auth"
	"sitediary/db"
	"sitediary/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware validates session tokens and injects the user profile into the context.
// A valid token whose profile document is missing still passes with a profile built from the claims.
func AuthMiddleware(jwtManager *auth.JWTManager, store db.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				writeError(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.ValidateToken(token, auth.AccessToken)
			if err != nil {
				writeError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			user, err := store.GetUser(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, db.ErrNotFound):
				user = userFromClaims(claims)
			case err != nil:
				logger.Warn("failed to load user profile", zap.String("user_id", claims.UserID), zap.Error(err))
				user = userFromClaims(claims)
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFromClaims(c *auth.Claims) *models.User {
	return &models.User{UserID: c.UserID, Email: c.Email, EmailVerified: c.EmailVerified}
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// WithUser returns a context carrying user, as AuthMiddleware would.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// RequireVerified rejects users whose email address is not verified.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			writeError(w, "User not found in context", http.StatusUnauthorized)
			return
		}
		if !user.EmailVerified {
			writeError(w, "Email address is not verified", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

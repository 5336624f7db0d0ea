package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitediary/auth"
	"sitediary/db"
	"sitediary/models"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(user.UserID + "|" + user.DisplayName))
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour, 24*time.Hour)
	store := db.NewMemoryDB()
	require.NoError(t, store.UpsertUser(context.Background(), &models.User{UserID: "u1", DisplayName: "Site Lead", EmailVerified: true}))
	h := AuthMiddleware(jwtManager, store, zap.NewNop())(http.HandlerFunc(echoUser))

	access, err := jwtManager.GenerateToken(&models.User{UserID: "u1", EmailVerified: true})
	require.NoError(t, err)
	refresh, err := jwtManager.GenerateRefreshToken(&models.User{UserID: "u1"})
	require.NoError(t, err)
	unknown, err := jwtManager.GenerateToken(&models.User{UserID: "u2"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"malformed header", "Token abc", http.StatusUnauthorized, ""},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized, ""},
		{"valid", "Bearer " + access, http.StatusOK, "u1|Site Lead"},
		{"profile not stored yet", "Bearer " + unknown, http.StatusOK, "u2|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestRequireVerified(t *testing.T) {
	h := RequireVerified(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		user   *models.User
		status int
	}{
		{nil, http.StatusUnauthorized},
		{&models.User{UserID: "u1"}, http.StatusForbidden},
		{&models.User{UserID: "u1", EmailVerified: true}, http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/reports/save", nil)
		if tc.user != nil {
			req = req.WithContext(WithUser(req.Context(), tc.user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(""))
	assert.Equal(t, http.StatusOK, do(""))
	assert.Equal(t, http.StatusTooManyRequests, do(""))
	assert.Equal(t, http.StatusOK, do("203.0.113.7, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, do("203.0.113.7, 10.9.9.9"))
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(10, time.Second)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.GetLimiter("a")
	now = now.Add(2 * time.Hour)
	rl.GetLimiter("b")

	assert.Equal(t, 1, rl.Prune(time.Hour))
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "b")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))
	req.Header.Set("X-Forwarded-For", " 198.51.100.2 ,192.0.2.1")
	assert.Equal(t, "198.51.100.2", ClientIP(req))
}

func TestCORSMiddleware(t *testing.T) {
	called := false
	h := CORSMiddleware([]string{"http://localhost:3000/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)

	req = httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, called)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/reports/get", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := m.Middleware(zap.NewNop())(mux)

	for _, p := range []string{"/api/reports/get?date=2024-03-01", "/api/reports/get", "/boom", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReqCount.WithLabelValues("GET", "/api/reports/get", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReqCount.WithLabelValues("GET", "/boom", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorCount.WithLabelValues("/boom")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReqCount.WithLabelValues("GET", "unmatched", "404")))
}

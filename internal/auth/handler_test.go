package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/permissions"
	"github.com/opsdeck/opsdeck/internal/shared"
	"github.com/opsdeck/opsdeck/internal/users"
)

func newLoginHandler(t *testing.T, source UserSource) *Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "opsdeck_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(source), sessions, csrf)
}

func loginRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/auth", h.MountRoutes)
	return r
}

func TestLoginIssuesSessionAndCSRFToken(t *testing.T) {
	source := &stubUserSource{byEmail: map[string]users.User{
		"owner@example.com": {
			ID:           1,
			Email:        "owner@example.com",
			FullName:     "Owner",
			Role:         permissions.RoleAdmin,
			IsActive:     true,
			PasswordHash: hashPassword(t, "correct horse battery"),
		},
	}}
	h := newLoginHandler(t, source)
	router := loginRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"owner@example.com","password":"correct horse battery"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UserID    int64  `json:"user_id"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.UserID)
	require.Equal(t, "admin", body.Role)
	require.NotEmpty(t, body.CSRFToken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	source := &stubUserSource{byEmail: map[string]users.User{
		"owner@example.com": {
			ID:           1,
			Email:        "owner@example.com",
			IsActive:     true,
			PasswordHash: hashPassword(t, "correct horse battery"),
		},
	}}
	h := newLoginHandler(t, source)
	router := loginRouter(h)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"wrong password", `{"email":"owner@example.com","password":"wrong password"}`, http.StatusUnauthorized},
		{"unknown user", `{"email":"nobody@example.com","password":"whatever12"}`, http.StatusUnauthorized},
		{"short password", `{"email":"owner@example.com","password":"short"}`, http.StatusUnauthorized},
		{"malformed body", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	h := newLoginHandler(t, &stubUserSource{})
	router := loginRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

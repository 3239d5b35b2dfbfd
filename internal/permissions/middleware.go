package permissions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/opsdeck/opsdeck/internal/platform/httpx"
	"github.com/opsdeck/opsdeck/internal/shared"
)

// GrantSource loads the current persisted grant for a user. Implementations
// must read the authoritative store, never a cached claim, so a revocation
// or deactivation takes effect on the very next request.
type GrantSource interface {
	GrantFor(ctx context.Context, userID int64) (Grant, error)
}

// Middleware wires capability checks for HTTP handlers.
type Middleware struct {
	Catalog *Catalog
	Source  GrantSource
	Logger  *slog.Logger
}

// Require ensures the current user holds the given capability.
func (m Middleware) Require(key Key) func(http.Handler) http.Handler {
	return m.RequireAny(key)
}

// RequireAny ensures the current user holds at least one listed capability.
func (m Middleware) RequireAny(keys ...Key) func(http.Handler) http.Handler {
	required := normalizeKeys(keys)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok := m.grantedSet(w, r)
			if !ok {
				return
			}
			for _, k := range required {
				if granted.Contains(k) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequireAll ensures the current user holds every listed capability.
func (m Middleware) RequireAll(keys ...Key) func(http.Handler) http.Handler {
	required := normalizeKeys(keys)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted, ok := m.grantedSet(w, r)
			if !ok {
				return
			}
			for _, k := range required {
				if !granted.Contains(k) {
					httpx.RespondError(w, shared.ErrForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated only checks that a signed-in, active user exists.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.grantedSet(w, r); !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// grantedSet re-fetches the persisted grant for the session user and resolves
// it. On failure it writes the error response and returns ok=false.
func (m Middleware) grantedSet(w http.ResponseWriter, r *http.Request) (Set, bool) {
	userID, ok := m.currentUserID(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	grant, err := m.Source.GrantFor(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return nil, false
		}
		if m.Logger != nil {
			m.Logger.Error("load grant", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return nil, false
	}
	return m.Catalog.Resolve(grant), true
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func normalizeKeys(keys []Key) []Key {
	unique := make(map[Key]struct{}, len(keys))
	normalized := make([]Key, 0, len(keys))
	for _, k := range keys {
		k = Key(strings.TrimSpace(strings.ToLower(string(k))))
		if k == "" {
			continue
		}
		if _, seen := unique[k]; seen {
			continue
		}
		unique[k] = struct{}{}
		normalized = append(normalized, k)
	}
	return normalized
}

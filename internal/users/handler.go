package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/opsdeck/opsdeck/internal/permissions"
	"github.com/opsdeck/opsdeck/internal/platform/httpx"
	"github.com/opsdeck/opsdeck/internal/shared"
)

// AuditLister reads recent permission change records.
type AuditLister interface {
	Recent(ctx context.Context, limit int) ([]shared.AuditEntry, error)
}

// Handler exposes the user administration API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   *permissions.Catalog
	audit     AuditLister
	gate      permissions.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, catalog *permissions.Catalog, audit AuditLister, gate permissions.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		catalog:   catalog,
		audit:     audit,
		gate:      gate,
		validator: validator.New(),
	}
}

// MountRoutes registers the admin user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(permissions.ManagePermissions))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
		r.Put("/{id}/role", h.updateRole)
		r.Put("/{id}/permissions", h.updatePermissions)
		r.Put("/{id}/activate", h.activate)
		r.Put("/{id}/deactivate", h.deactivate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(permissions.EditEmployees, permissions.ManagePermissions))
		r.Post("/invite", h.invite)
		r.Get("/{id}/credential", h.revealCredential)
	})
}

// MountMe registers the current-user profile route.
func (h *Handler) MountMe(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAuthenticated)
		r.Get("/me", h.me)
	})
}

// MountAudit registers the audit listing route.
func (h *Handler) MountAudit(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(permissions.ManagePermissions))
		r.Get("/", h.listAudit)
	})
}

type userPayload struct {
	ID                   int64    `json:"id"`
	Email                string   `json:"email"`
	FullName             string   `json:"full_name"`
	Role                 string   `json:"role"`
	IsActive             bool     `json:"is_active"`
	CustomPermissions    []string `json:"custom_permissions"`
	EffectivePermissions []string `json:"effective_permissions"`
	Version              int64    `json:"version"`
}

func (h *Handler) payload(user User) userPayload {
	effective := h.catalog.Resolve(user.Grant())
	return userPayload{
		ID:                   user.ID,
		Email:                user.Email,
		FullName:             user.FullName,
		Role:                 string(user.Role),
		IsActive:             user.IsActive,
		CustomPermissions:    toStrings(user.CustomPermissions),
		EffectivePermissions: toStrings(effective.Keys()),
		Version:              user.Version,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	payloads := make([]userPayload, len(users))
	for i, user := range users {
		payloads[i] = h.payload(user)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": payloads})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.payload(user))
}

type inviteRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=admin employee"`
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError(firstValidationField(err)))
		return
	}
	user, credential, err := h.service.Invite(r.Context(), actorID, InviteInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     permissions.Role(req.Role),
	})
	if err != nil {
		h.fail(w, r, "invite user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"user":                h.payload(user),
		"one_time_credential": credential,
	})
}

func (h *Handler) revealCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	credential, err := h.service.RevealCredential(r.Context(), id)
	if err != nil {
		h.fail(w, r, "reveal credential", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"one_time_credential": credential})
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin employee"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("role", req.Role))
		return
	}
	user, err := h.service.ToggleRole(r.Context(), actorID, id, permissions.Role(req.Role))
	if err != nil {
		h.fail(w, r, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.payload(user))
}

type permissionsRequest struct {
	CustomPermissions []string `json:"custom_permissions" validate:"required"`
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	keys := make([]permissions.Key, len(req.CustomPermissions))
	for i, k := range req.CustomPermissions {
		keys[i] = permissions.Key(k)
	}
	user, err := h.service.SetCustomPermissions(r.Context(), actorID, id, keys)
	if err != nil {
		h.fail(w, r, "update permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.payload(user))
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.SetActive(r.Context(), actorID, id, active)
	if err != nil {
		h.fail(w, r, "set active", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.payload(user))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), actorID)
	if err != nil {
		h.fail(w, r, "load profile", err)
		return
	}
	effective := h.catalog.Resolve(user.Grant())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":       h.payload(user),
		"navigation": permissions.Navigation(effective),
	})
}

type auditPayload struct {
	ID           int64          `json:"id"`
	ActorID      int64          `json:"actor_id"`
	TargetUserID int64          `json:"target_user_id"`
	Action       string         `json:"action"`
	Changes      map[string]any `json:"changes,omitempty"`
	At           time.Time      `json:"at"`
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "list audit", err)
		return
	}
	payloads := make([]auditPayload, len(entries))
	for i, entry := range entries {
		payloads[i] = auditPayload{
			ID:           entry.ID,
			ActorID:      entry.ActorID,
			TargetUserID: entry.TargetUserID,
			Action:       entry.Action,
			Changes:      entry.Changes,
			At:           entry.At,
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": payloads})
}

func (h *Handler) actorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return 0, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return 0, false
	}
	return id, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrNotFound)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func firstValidationField(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return errs[0].Field()
	}
	return "request"
}

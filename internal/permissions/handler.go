package permissions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opsdeck/opsdeck/internal/platform/httpx"
)

// Handler exposes the capability catalog.
type Handler struct {
	logger  *slog.Logger
	catalog *Catalog
	gate    Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, catalog *Catalog, gate Middleware) *Handler {
	return &Handler{logger: logger, catalog: catalog, gate: gate}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(ManagePermissions))
		r.Get("/", h.listPermissions)
	})
}

type permissionPayload struct {
	Key         string `json:"key"`
	Category    string `json:"category"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type categoryPayload struct {
	Category    string              `json:"category"`
	Permissions []permissionPayload `json:"permissions"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	groups := h.catalog.ByCategory()
	payload := make([]categoryPayload, len(groups))
	for i, group := range groups {
		perms := make([]permissionPayload, len(group.Permissions))
		for j, p := range group.Permissions {
			perms[j] = permissionPayload{
				Key:         string(p.Key),
				Category:    p.Category,
				Label:       p.Label,
				Description: p.Description,
			}
		}
		payload[i] = categoryPayload{Category: group.Category, Permissions: perms}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": payload})
}

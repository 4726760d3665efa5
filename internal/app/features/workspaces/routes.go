package workspaces

import "github.com/go-chi/chi/v5"

// MountRoutes registers the workspace endpoints on the supplied router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/workspaces", h.ServeList)
	r.Post("/workspaces/select", h.ServeSelect)
}

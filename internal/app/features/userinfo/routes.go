package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /me on the supplied router. No auth
// middleware is required; the handler reports the anonymous state
// itself.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/me", h.ServeMe)
}

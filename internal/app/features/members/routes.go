package members

import "github.com/go-chi/chi/v5"

// MountRoutes registers the membership endpoints on the supplied
// router. The listing is workspace-scoped; removal addresses the
// membership document directly.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/workspaces/{workspaceID}/members", h.ServeList)
	r.Delete("/memberships/{membershipID}", h.ServeRemove)
}

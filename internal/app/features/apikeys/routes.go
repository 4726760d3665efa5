package apikeys

import "github.com/go-chi/chi/v5"

// Routes returns the key-management subrouter, mounted under
// /api/workspaces/{workspaceID}/keys.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Delete("/{keyID}", h.ServeDelete)
	return r
}

// Package userinfo reports who the current request is authenticated as.
package userinfo

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	authorize *authz.Authorizer
	log       *zap.Logger
}

func NewHandler(authorize *authz.Authorizer, logger *zap.Logger) *Handler {
	return &Handler{authorize: authorize, log: logger}
}

// ServeMe handles GET /api/me.
//
// Response format:
//
//	{ "authenticated": bool, "method": "...", "user_id": "...",
//	  "name": "...", "email": "...", "platform_admin": bool,
//	  "key_workspace_id": "..." }
//
// The platform_admin flag is re-read from the system of record on every
// call rather than echoed from the credential, so revocation shows up
// immediately.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, ok := auth.CurrentIdentity(r)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"authenticated": false})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	isAdmin, err := h.authorize.IsPlatformAdmin(ctx, id)
	if err != nil {
		h.log.Warn("platform admin check failed", zap.Error(err))
		isAdmin = false
	}

	resp := map[string]any{
		"authenticated":  true,
		"method":         id.Method,
		"user_id":        id.UserID,
		"name":           id.Name,
		"email":          id.Email,
		"platform_admin": isAdmin,
	}
	if id.Method == auth.MethodAPIKey {
		resp["key_workspace_id"] = id.KeyWorkspaceID
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Package members serves workspace membership listings and removal.
package members

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quireworks/quire/internal/app/store/memberships"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"github.com/quireworks/quire/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	memberships *membershipstore.Store
	users       *userstore.Store
	authorize   *authz.Authorizer
	audit       *auditlog.Logger
	log         *zap.Logger
}

// NewHandler wires the membership surface. audit may be nil to disable
// audit trail writes.
func NewHandler(memberships *membershipstore.Store, users *userstore.Store, authorize *authz.Authorizer, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{memberships: memberships, users: users, authorize: authorize, audit: audit, log: logger}
}

type memberView struct {
	MembershipID string      `json:"membership_id"`
	UserID       string      `json:"user_id"`
	FullName     string      `json:"full_name,omitempty"`
	Email        string      `json:"email,omitempty"`
	Role         models.Role `json:"role"`
	JoinedAt     time.Time   `json:"joined_at"`
}

// ServeList handles GET /api/workspaces/{workspaceID}/members. Any
// member of the workspace may list its roster.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return
	}

	wsID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "workspaceID"))
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	isMember, err := h.authorize.IsWorkspaceMember(ctx, id, wsID)
	if err != nil {
		authcore.WriteError(w, h.log, err)
		return
	}
	if !isMember {
		authcore.WriteError(w, h.log, authcore.ErrUnauthorized)
		return
	}

	ms, err := h.memberships.ListByWorkspace(ctx, wsID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}

	views := make([]memberView, 0, len(ms))
	for _, m := range ms {
		v := memberView{
			MembershipID: m.ID.Hex(),
			UserID:       m.UserID.Hex(),
			Role:         m.Role,
			JoinedAt:     m.CreatedAt,
		}
		if u, err := h.users.GetByID(ctx, m.UserID); err == nil {
			v.FullName = u.FullName
			v.Email = u.Email
		}
		views = append(views, v)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"members": views})
}

// ServeRemove handles DELETE /api/memberships/{membershipID}. The
// authorizer owns the rules: admin of the membership's workspace only,
// owner memberships are immovable, and self-removal is rejected with an
// outcome distinct from not-found.
func (h *Handler) ServeRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return
	}

	mID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "membershipID"))
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	removed, err := h.authorize.RemoveMembership(ctx, id, mID)
	if err != nil {
		authcore.WriteError(w, h.log, err)
		return
	}
	h.audit.MemberRemoved(ctx, r, auditlog.Actor{UserID: id.UserID, KeyID: id.KeyID}, removed.WorkspaceID, removed.UserID)
	w.WriteHeader(http.StatusNoContent)
}

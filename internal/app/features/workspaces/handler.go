// Package workspaces serves a caller's workspace list and the active
// workspace selection.
//
// The "active" workspace is a per-browser affair: a signed cookie holds
// the last explicit choice, and the resolver falls back to the most
// recently joined workspace when the cookie is absent or no longer
// valid for the caller.
package workspaces

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quireworks/quire/internal/app/store/memberships"
	"github.com/quireworks/quire/internal/app/store/workspaces"
	"github.com/quireworks/quire/internal/app/system/affinity"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"github.com/quireworks/quire/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	workspaces  *workspacestore.Store
	memberships *membershipstore.Store
	hints       *affinity.HintCodec
	audit       *auditlog.Logger
	log         *zap.Logger
}

// NewHandler wires the workspace surface. audit may be nil to disable
// audit trail writes.
func NewHandler(workspaces *workspacestore.Store, memberships *membershipstore.Store, hints *affinity.HintCodec, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{workspaces: workspaces, memberships: memberships, hints: hints, audit: audit, log: logger}
}

type workspaceView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Subdomain string      `json:"subdomain"`
	Role      models.Role `json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`
	Active    bool        `json:"active"`
}

// ServeList handles GET /api/workspaces: the caller's memberships
// joined with workspace details, with the resolved active workspace
// flagged. Disabled workspaces are listed but never flagged active.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok || id.UserID == "" {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return
	}
	userID, err := primitive.ObjectIDFromHex(id.UserID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ms, err := h.memberships.ListByUser(ctx, userID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}

	wsIDs := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		wsIDs = append(wsIDs, m.WorkspaceID)
	}
	wsByID, err := h.workspaces.GetByIDs(ctx, wsIDs)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}

	// Only active workspaces participate in the affinity pick.
	eligible := make([]models.Membership, 0, len(ms))
	for _, m := range ms {
		if ws, ok := wsByID[m.WorkspaceID]; ok && ws.IsActive() {
			eligible = append(eligible, m)
		}
	}
	picked, havePick := affinity.SelectWorkspace(eligible, h.hints.Read(r))

	views := make([]workspaceView, 0, len(ms))
	for _, m := range ms {
		ws, ok := wsByID[m.WorkspaceID]
		if !ok {
			continue
		}
		views = append(views, workspaceView{
			ID:        ws.ID.Hex(),
			Name:      ws.Name,
			Subdomain: ws.Subdomain,
			Role:      m.Role,
			JoinedAt:  m.CreatedAt,
			Active:    havePick && m.ID == picked.ID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"workspaces": views})
}

type selectRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// ServeSelect handles POST /api/workspaces/select. The choice is
// validated against the caller's current memberships before the cookie
// is written, so a stale or forged id can never become the hint.
func (h *Handler) ServeSelect(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.CurrentIdentity(r)
	if !ok || id.UserID == "" {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return
	}
	userID, err := primitive.ObjectIDFromHex(id.UserID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authcore.WriteError(w, h.log, authcore.ErrInvalidOperation.WithMessage("a workspace_id is required"))
		return
	}
	wsID, err := primitive.ObjectIDFromHex(req.WorkspaceID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	isMember, err := h.memberships.Exists(ctx, userID, wsID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}
	if !isMember {
		authcore.WriteError(w, h.log, authcore.ErrUnauthorized)
		return
	}

	ws, err := h.workspaces.GetByID(ctx, wsID)
	if err != nil {
		if err == workspacestore.ErrNotFound {
			authcore.WriteError(w, h.log, authcore.ErrNotFound)
			return
		}
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}
	if !ws.IsActive() {
		authcore.WriteError(w, h.log, authcore.ErrInvalidOperation.WithMessage("this workspace is not active"))
		return
	}

	if err := h.hints.Write(w, wsID.Hex()); err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}
	h.audit.WorkspaceSelected(ctx, r, auditlog.Actor{UserID: id.UserID}, wsID)
	w.WriteHeader(http.StatusNoContent)
}

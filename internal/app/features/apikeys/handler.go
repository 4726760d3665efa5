// Package apikeys is the management surface for workspace API keys.
//
// All routes are scoped to a workspace and require the caller to be an
// admin of that workspace. The create response is the only place the
// plaintext key ever appears; afterwards only the public prefix is
// shown.
package apikeys

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quireworks/quire/internal/app/store/apikeys"
	"github.com/quireworks/quire/internal/app/system/apikey"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	keys      *apikeystore.Store
	authorize *authz.Authorizer
	secretLen int
	audit     *auditlog.Logger
	log       *zap.Logger
}

// NewHandler wires the key management surface. audit may be nil to
// disable audit trail writes.
func NewHandler(keys *apikeystore.Store, authorize *authz.Authorizer, secretLen int, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if secretLen <= 0 {
		secretLen = apikey.DefaultSecretLen
	}
	return &Handler{keys: keys, authorize: authorize, secretLen: secretLen, audit: audit, log: logger}
}

type keyView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PublicPrefix string    `json:"public_prefix"`
	CreatedAt    time.Time `json:"created_at"`
}

type createRequest struct {
	Name string `json:"name"`
}

type createResponse struct {
	keyView
	// The full secret, returned exactly once. It is never stored and
	// cannot be retrieved again.
	Key string `json:"key"`
}

// ServeCreate handles POST /api/workspaces/{workspaceID}/keys.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	wsID, id, ok := h.requireWorkspaceAdmin(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		authcore.WriteError(w, h.log, authcore.ErrInvalidOperation.WithMessage("a key name is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec, plaintext, err := h.keys.Create(ctx, wsID, req.Name, h.secretLen)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}

	h.log.Info("api key created",
		zap.String("workspace_id", wsID.Hex()),
		zap.String("key_id", rec.ID.Hex()),
		zap.String("actor", actorRef(id)))
	h.audit.APIKeyCreated(ctx, r, auditlog.Actor{UserID: id.UserID, KeyID: id.KeyID}, wsID, rec.ID, rec.PublicPrefix)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createResponse{
		keyView: keyView{
			ID:           rec.ID.Hex(),
			Name:         rec.Name,
			PublicPrefix: rec.PublicPrefix,
			CreatedAt:    rec.CreatedAt,
		},
		Key: plaintext,
	})
}

// ServeList handles GET /api/workspaces/{workspaceID}/keys.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	wsID, _, ok := h.requireWorkspaceAdmin(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	recs, err := h.keys.ListByWorkspace(ctx, wsID)
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}

	views := make([]keyView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, keyView{
			ID:           rec.ID.Hex(),
			Name:         rec.Name,
			PublicPrefix: rec.PublicPrefix,
			CreatedAt:    rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": views})
}

// ServeDelete handles DELETE /api/workspaces/{workspaceID}/keys/{keyID}.
// Deletion revokes the key immediately; rotation is delete + create.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	wsID, id, ok := h.requireWorkspaceAdmin(w, r)
	if !ok {
		return
	}

	keyID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "keyID"))
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.keys.Delete(ctx, wsID, keyID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			authcore.WriteError(w, h.log, authcore.ErrNotFound)
			return
		}
		authcore.WriteError(w, h.log, authcore.ErrUpstreamUnavailable.WithCause(err))
		return
	}

	h.log.Info("api key revoked",
		zap.String("workspace_id", wsID.Hex()),
		zap.String("key_id", keyID.Hex()),
		zap.String("actor", actorRef(id)))
	h.audit.APIKeyDeleted(ctx, r, auditlog.Actor{UserID: id.UserID, KeyID: id.KeyID}, wsID, keyID)

	w.WriteHeader(http.StatusNoContent)
}

// requireWorkspaceAdmin resolves the workspace from the URL and checks
// the caller's role, writing the error response itself on failure.
func (h *Handler) requireWorkspaceAdmin(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, *auth.Identity, bool) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		authcore.WriteError(w, h.log, authcore.ErrInvalidCredential)
		return primitive.NilObjectID, nil, false
	}

	wsID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "workspaceID"))
	if err != nil {
		authcore.WriteError(w, h.log, authcore.ErrNotFound)
		return primitive.NilObjectID, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	isAdmin, err := h.authorize.IsWorkspaceAdmin(ctx, id, wsID)
	if err != nil {
		authcore.WriteError(w, h.log, err)
		return primitive.NilObjectID, nil, false
	}
	if !isAdmin {
		authcore.WriteError(w, h.log, authcore.ErrUnauthorized)
		return primitive.NilObjectID, nil, false
	}
	return wsID, id, true
}

func actorRef(id *auth.Identity) string {
	if id == nil {
		return ""
	}
	if id.Method == auth.MethodAPIKey {
		return "key:" + id.KeyID
	}
	return "user:" + id.UserID
}

// Package authz answers yes/no capability questions for a verified
// identity against a target scope (platform or workspace).
//
// Every predicate re-reads the system of record: the admin flag and
// membership role are never cached across requests, so revocation takes
// effect on the next call. Absence of identity, absence of membership,
// and verifier rejections all resolve to "not authorized"; the
// fail-closed default. Infrastructure failures additionally surface an
// error so callers do not mistake an outage for a denial they can
// retry against.
package authz

import (
	"context"
	"errors"

	"github.com/quireworks/quire/internal/app/store/memberships"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/app/store/workspaces"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Authorizer evaluates authorization predicates. All dependencies are
// injected at startup; there are no package-level stores.
type Authorizer struct {
	users       *userstore.Store
	memberships *membershipstore.Store
	workspaces  *workspacestore.Store
	log         *zap.Logger
}

func New(users *userstore.Store, memberships *membershipstore.Store, workspaces *workspacestore.Store, log *zap.Logger) *Authorizer {
	return &Authorizer{
		users:       users,
		memberships: memberships,
		workspaces:  workspaces,
		log:         log,
	}
}

// IsPlatformAdmin reports whether the identity resolves to a user whose
// admin flag is currently true. The flag is fetched from the users
// collection on every call; a revoked admin is denied on the very next
// request. Anonymous identities and API key principals are never
// platform admins.
func (a *Authorizer) IsPlatformAdmin(ctx context.Context, id *auth.Identity) (bool, error) {
	if id == nil || id.UserID == "" {
		return false, nil
	}
	oid, err := primitive.ObjectIDFromHex(id.UserID)
	if err != nil {
		return false, nil
	}

	u, err := a.users.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, authcore.ErrUpstreamUnavailable.WithCause(err)
	}
	return u.Status != models.StatusDisabled && u.IsAdmin, nil
}

// WorkspaceRole returns the identity's role in the workspace, or
// ok=false if it has none. An API key principal acts as an admin of the
// workspace that owns the key and has no role anywhere else. A disabled
// workspace grants no roles to anyone.
func (a *Authorizer) WorkspaceRole(ctx context.Context, id *auth.Identity, workspaceID primitive.ObjectID) (models.Role, bool, error) {
	if id == nil {
		return "", false, nil
	}

	active, err := a.workspaceActive(ctx, workspaceID)
	if err != nil {
		return "", false, err
	}
	if !active {
		return "", false, nil
	}

	if id.Method == auth.MethodAPIKey {
		if id.KeyWorkspaceID == workspaceID.Hex() {
			return models.RoleAdmin, true, nil
		}
		return "", false, nil
	}

	if id.UserID == "" {
		return "", false, nil
	}
	oid, err := primitive.ObjectIDFromHex(id.UserID)
	if err != nil {
		return "", false, nil
	}

	m, err := a.memberships.Find(ctx, oid, workspaceID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, authcore.ErrUpstreamUnavailable.WithCause(err)
	}
	return m.Role, true, nil
}

// IsWorkspaceAdmin reports whether the identity holds the owner or
// admin role in the workspace.
func (a *Authorizer) IsWorkspaceAdmin(ctx context.Context, id *auth.Identity, workspaceID primitive.ObjectID) (bool, error) {
	role, ok, err := a.WorkspaceRole(ctx, id, workspaceID)
	if err != nil || !ok {
		return false, err
	}
	return role.AtLeast(models.RoleAdmin), nil
}

// IsWorkspaceMember reports whether the identity holds any role in the
// workspace.
func (a *Authorizer) IsWorkspaceMember(ctx context.Context, id *auth.Identity, workspaceID primitive.ObjectID) (bool, error) {
	_, ok, err := a.WorkspaceRole(ctx, id, workspaceID)
	return ok, err
}

// RemoveMembership deletes a membership on behalf of caller, enforcing
// the self-protection rules:
//
//   - the owner membership can never be removed through this path,
//     regardless of who asks (owner transfer is a separate flow);
//   - a caller can never remove their own membership here, and that
//     rejection is distinct from "not found".
//
// The caller must be an admin of the membership's workspace. On
// success the removed membership is returned so callers can record
// what was revoked.
func (a *Authorizer) RemoveMembership(ctx context.Context, caller *auth.Identity, membershipID primitive.ObjectID) (models.Membership, error) {
	var none models.Membership

	m, err := a.memberships.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return none, authcore.ErrNotFound
		}
		return none, authcore.ErrUpstreamUnavailable.WithCause(err)
	}

	isAdmin, err := a.IsWorkspaceAdmin(ctx, caller, m.WorkspaceID)
	if err != nil {
		return none, err
	}
	if !isAdmin {
		return none, authcore.ErrUnauthorized
	}

	if m.Role == models.RoleOwner {
		return none, authcore.ErrInvalidOperation.WithMessage("the workspace owner cannot be removed")
	}
	if caller != nil && caller.UserID == m.UserID.Hex() {
		return none, authcore.ErrInvalidOperation.WithMessage("you cannot remove your own membership")
	}

	if err := a.memberships.Remove(ctx, membershipID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Deleted concurrently; same outcome as never found.
			return none, authcore.ErrNotFound
		}
		return none, authcore.ErrUpstreamUnavailable.WithCause(err)
	}

	a.log.Info("membership removed",
		zap.String("membership_id", membershipID.Hex()),
		zap.String("workspace_id", m.WorkspaceID.Hex()),
		zap.String("removed_user_id", m.UserID.Hex()))
	return m, nil
}

func (a *Authorizer) workspaceActive(ctx context.Context, workspaceID primitive.ObjectID) (bool, error) {
	ws, err := a.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return false, nil
		}
		return false, authcore.ErrUpstreamUnavailable.WithCause(err)
	}
	return ws.IsActive(), nil
}

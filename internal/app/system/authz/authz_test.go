package authz_test

import (
	"testing"

	"github.com/quireworks/quire/internal/app/store/memberships"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/app/store/workspaces"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/domain/models"
	"github.com/quireworks/quire/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newAuthorizer(t *testing.T) (*authz.Authorizer, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	a := authz.New(
		userstore.New(db),
		membershipstore.New(db),
		workspacestore.New(db),
		zap.NewNop(),
	)
	return a, testutil.NewFixtures(t, db)
}

func sessionIdentity(u models.User) *auth.Identity {
	return testutil.SessionIdentity(u.ID, u.FullName, u.Email)
}

func TestIsPlatformAdmin(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	admin := fx.CreatePlatformAdmin(ctx, "Platform Admin", "admin@example.com")
	regular := fx.CreateUser(ctx, "Regular User", "user@example.com")

	if ok, err := a.IsPlatformAdmin(ctx, sessionIdentity(admin)); err != nil || !ok {
		t.Errorf("admin: got (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := a.IsPlatformAdmin(ctx, sessionIdentity(regular)); err != nil || ok {
		t.Errorf("regular user: got (%v, %v), want (false, nil)", ok, err)
	}
	if ok, err := a.IsPlatformAdmin(ctx, nil); err != nil || ok {
		t.Errorf("anonymous: got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestIsPlatformAdmin_RevocationIsImmediate(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	admin := fx.CreatePlatformAdmin(ctx, "Soon Demoted", "demoted@example.com")
	id := sessionIdentity(admin)

	if ok, _ := a.IsPlatformAdmin(ctx, id); !ok {
		t.Fatal("expected admin before revocation")
	}

	if _, err := fx.DB().Collection("users").UpdateByID(ctx, admin.ID,
		bson.M{"$set": bson.M{"is_admin": false}}); err != nil {
		t.Fatalf("failed to revoke admin flag: %v", err)
	}

	if ok, _ := a.IsPlatformAdmin(ctx, id); ok {
		t.Error("expected revocation to take effect on the next call")
	}
}

func TestIsPlatformAdmin_DisabledUserDenied(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	u := fx.CreateDisabledUser(ctx, "Disabled Admin", "disabled@example.com")
	if _, err := fx.DB().Collection("users").UpdateByID(ctx, u.ID,
		bson.M{"$set": bson.M{"is_admin": true}}); err != nil {
		t.Fatalf("failed to set admin flag: %v", err)
	}

	if ok, err := a.IsPlatformAdmin(ctx, sessionIdentity(u)); err != nil || ok {
		t.Errorf("disabled admin: got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestIsPlatformAdmin_UnknownAndMalformedIDs(t *testing.T) {
	a, _ := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	unknown := &auth.Identity{UserID: primitive.NewObjectID().Hex(), Method: auth.MethodSession}
	if ok, err := a.IsPlatformAdmin(ctx, unknown); err != nil || ok {
		t.Errorf("unknown user: got (%v, %v), want (false, nil)", ok, err)
	}

	malformed := &auth.Identity{UserID: "not-a-hex-id", Method: auth.MethodSession}
	if ok, err := a.IsPlatformAdmin(ctx, malformed); err != nil || ok {
		t.Errorf("malformed id: got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestWorkspaceRole_Matrix(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	ws := fx.CreateWorkspace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	admin := fx.CreateUser(ctx, "Admin", "wsadmin@example.com")
	member := fx.CreateUser(ctx, "Member", "member@example.com")
	outsider := fx.CreateUser(ctx, "Outsider", "outsider@example.com")

	fx.CreateMembership(ctx, ws.ID, owner.ID, models.RoleOwner)
	fx.CreateMembership(ctx, ws.ID, admin.ID, models.RoleAdmin)
	fx.CreateMembership(ctx, ws.ID, member.ID, models.RoleMember)

	cases := []struct {
		name     string
		user     models.User
		wantRole models.Role
		wantOK   bool
	}{
		{"owner", owner, models.RoleOwner, true},
		{"admin", admin, models.RoleAdmin, true},
		{"member", member, models.RoleMember, true},
		{"outsider", outsider, "", false},
	}
	for _, tc := range cases {
		role, ok, err := a.WorkspaceRole(ctx, sessionIdentity(tc.user), ws.ID)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if ok != tc.wantOK || role != tc.wantRole {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", tc.name, role, ok, tc.wantRole, tc.wantOK)
		}
	}
}

func TestIsWorkspaceAdmin_TruthTable(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	ws := fx.CreateWorkspace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	admin := fx.CreateUser(ctx, "Admin", "wsadmin@example.com")
	member := fx.CreateUser(ctx, "Member", "member@example.com")
	outsider := fx.CreateUser(ctx, "Outsider", "outsider@example.com")

	fx.CreateMembership(ctx, ws.ID, owner.ID, models.RoleOwner)
	fx.CreateMembership(ctx, ws.ID, admin.ID, models.RoleAdmin)
	fx.CreateMembership(ctx, ws.ID, member.ID, models.RoleMember)

	cases := []struct {
		name string
		user models.User
		want bool
	}{
		{"owner", owner, true},
		{"admin", admin, true},
		{"member", member, false},
		{"outsider", outsider, false},
	}
	for _, tc := range cases {
		got, err := a.IsWorkspaceAdmin(ctx, sessionIdentity(tc.user), ws.ID)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	if got, err := a.IsWorkspaceAdmin(ctx, nil, ws.ID); err != nil || got {
		t.Errorf("anonymous: got (%v, %v), want (false, nil)", got, err)
	}
}

func TestWorkspaceRole_DisabledWorkspaceGrantsNothing(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	ws := fx.CreateDisabledWorkspace(ctx, "Mothballed", "mothballed")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	fx.CreateMembership(ctx, ws.ID, owner.ID, models.RoleOwner)

	if _, ok, err := a.WorkspaceRole(ctx, sessionIdentity(owner), ws.ID); err != nil || ok {
		t.Errorf("disabled workspace: got (ok=%v, err=%v), want no role", ok, err)
	}
}

func TestWorkspaceRole_MissingWorkspaceGrantsNothing(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	u := fx.CreateUser(ctx, "User", "user@example.com")
	if _, ok, err := a.WorkspaceRole(ctx, sessionIdentity(u), primitive.NewObjectID()); err != nil || ok {
		t.Errorf("missing workspace: got (ok=%v, err=%v), want no role", ok, err)
	}
}

func TestWorkspaceRole_APIKeyPrincipal(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	home := fx.CreateWorkspace(ctx, "Home", "home")
	other := fx.CreateWorkspace(ctx, "Other", "other")
	id := testutil.APIKeyIdentity(primitive.NewObjectID(), home.ID, "ci key")

	role, ok, err := a.WorkspaceRole(ctx, id, home.ID)
	if err != nil || !ok || role != models.RoleAdmin {
		t.Errorf("own workspace: got (%q, %v, %v), want (admin, true, nil)", role, ok, err)
	}
	if _, ok, err := a.WorkspaceRole(ctx, id, other.ID); err != nil || ok {
		t.Errorf("foreign workspace: got (ok=%v, err=%v), want no role", ok, err)
	}
}

func TestRemoveMembership(t *testing.T) {
	a, fx := newAuthorizer(t)
	ctx := testutil.TestContext(t)

	ws := fx.CreateWorkspace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	admin := fx.CreateUser(ctx, "Admin", "wsadmin@example.com")
	member := fx.CreateUser(ctx, "Member", "member@example.com")

	ownerM := fx.CreateMembership(ctx, ws.ID, owner.ID, models.RoleOwner)
	adminM := fx.CreateMembership(ctx, ws.ID, admin.ID, models.RoleAdmin)
	memberM := fx.CreateMembership(ctx, ws.ID, member.ID, models.RoleMember)

	t.Run("member cannot remove anyone", func(t *testing.T) {
		_, err := a.RemoveMembership(ctx, sessionIdentity(member), adminM.ID)
		if authcore.CodeOf(err) != "unauthorized" {
			t.Errorf("got %v, want unauthorized", err)
		}
	})

	t.Run("owner membership is immovable even for the owner", func(t *testing.T) {
		_, err := a.RemoveMembership(ctx, sessionIdentity(owner), ownerM.ID)
		if authcore.CodeOf(err) != "invalid_operation" {
			t.Errorf("owner removing self: got %v, want invalid_operation", err)
		}
		_, err = a.RemoveMembership(ctx, sessionIdentity(admin), ownerM.ID)
		if authcore.CodeOf(err) != "invalid_operation" {
			t.Errorf("admin removing owner: got %v, want invalid_operation", err)
		}
	})

	t.Run("self-removal is rejected, distinct from not found", func(t *testing.T) {
		_, err := a.RemoveMembership(ctx, sessionIdentity(admin), adminM.ID)
		if authcore.CodeOf(err) != "invalid_operation" {
			t.Errorf("got %v, want invalid_operation", err)
		}
	})

	t.Run("unknown membership is not found", func(t *testing.T) {
		_, err := a.RemoveMembership(ctx, sessionIdentity(owner), primitive.NewObjectID())
		if authcore.CodeOf(err) != "not_found" {
			t.Errorf("got %v, want not_found", err)
		}
	})

	t.Run("admin removes a member", func(t *testing.T) {
		removed, err := a.RemoveMembership(ctx, sessionIdentity(admin), memberM.ID)
		if err != nil {
			t.Fatalf("expected removal to succeed, got %v", err)
		}
		if removed.UserID != member.ID {
			t.Errorf("removed membership user = %s, want %s", removed.UserID.Hex(), member.ID.Hex())
		}
		if _, ok, _ := a.WorkspaceRole(ctx, sessionIdentity(member), ws.ID); ok {
			t.Error("expected the removed member to have no role")
		}
	})
}

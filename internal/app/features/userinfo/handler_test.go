package userinfo_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/quireworks/quire/internal/app/features/userinfo"
	"github.com/quireworks/quire/internal/app/store/memberships"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/app/store/workspaces"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/testutil"
	"go.uber.org/zap"
)

type meResponse struct {
	Authenticated  bool   `json:"authenticated"`
	Method         string `json:"method"`
	UserID         string `json:"user_id"`
	PlatformAdmin  bool   `json:"platform_admin"`
	KeyWorkspaceID string `json:"key_workspace_id"`
}

func newHandler(t *testing.T) (*userinfo.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	authorize := authz.New(userstore.New(db), membershipstore.New(db), workspacestore.New(db), zap.NewNop())
	return userinfo.NewHandler(authorize, zap.NewNop()), testutil.NewFixtures(t, db)
}

func serveMe(t *testing.T, h *userinfo.Handler, req *http.Request) meResponse {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeMe(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var resp meResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestServeMe_Anonymous(t *testing.T) {
	h, _ := newHandler(t)

	resp := serveMe(t, h, testutil.NewRequest("GET", "/me"))
	if resp.Authenticated {
		t.Error("expected authenticated=false for an anonymous request")
	}
}

func TestServeMe_SessionUser(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	u := fx.CreateUser(ctx, "Ada", "ada@example.com")
	resp := serveMe(t, h, testutil.NewAuthenticatedRequest("GET", "/me", testutil.SessionIdentity(u.ID, u.FullName, u.Email)))

	if !resp.Authenticated || resp.Method != "session" || resp.UserID != u.ID.Hex() {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.PlatformAdmin {
		t.Error("regular user must not be a platform admin")
	}
}

func TestServeMe_PlatformAdminFlagIsFresh(t *testing.T) {
	h, fx := newHandler(t)
	ctx := testutil.TestContext(t)

	u := fx.CreatePlatformAdmin(ctx, "Root", "root@example.com")
	// The identity carries a stale false; the handler must re-read.
	id := testutil.SessionIdentity(u.ID, u.FullName, u.Email)
	id.IsAdmin = false

	resp := serveMe(t, h, testutil.NewAuthenticatedRequest("GET", "/me", id))
	if !resp.PlatformAdmin {
		t.Error("expected the admin flag to be re-read from the store")
	}
}

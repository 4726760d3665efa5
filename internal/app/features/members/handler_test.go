package members_test

import (
	"net/http"
	"testing"

	"github.com/quireworks/quire/internal/app/features/members"
	"github.com/quireworks/quire/internal/app/store/memberships"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/app/store/workspaces"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/domain/models"
	"github.com/quireworks/quire/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	handler *members.Handler
	fx      *testutil.Fixtures
	ws      models.Workspace
	owner   models.User
	admin   models.User
	member  models.User

	ownerM  models.Membership
	adminM  models.Membership
	memberM models.Membership
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	us := userstore.New(db)
	ms := membershipstore.New(db)
	wss := workspacestore.New(db)
	authorize := authz.New(us, ms, wss, zap.NewNop())
	h := members.NewHandler(ms, us, authorize, nil, zap.NewNop())

	ws := fx.CreateWorkspace(ctx, "Acme", "acme")
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com")
	admin := fx.CreateUser(ctx, "Admin", "admin@example.com")
	member := fx.CreateUser(ctx, "Member", "member@example.com")

	return env{
		handler: h,
		fx:      fx,
		ws:      ws,
		owner:   owner,
		admin:   admin,
		member:  member,
		ownerM:  fx.CreateMembership(ctx, ws.ID, owner.ID, models.RoleOwner),
		adminM:  fx.CreateMembership(ctx, ws.ID, admin.ID, models.RoleAdmin),
		memberM: fx.CreateMembership(ctx, ws.ID, member.ID, models.RoleMember),
	}
}

func identity(u models.User) *auth.Identity {
	return testutil.SessionIdentity(u.ID, u.FullName, u.Email)
}

func TestServeList(t *testing.T) {
	e := setup(t)

	req := testutil.NewAuthenticatedRequest("GET", "/", identity(e.member))
	req = testutil.WithChiURLParam(req, "workspaceID", e.ws.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeList(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, e.owner.Email)
	rec.AssertContains(t, e.admin.Email)
	rec.AssertContains(t, e.member.Email)
}

func TestServeList_OutsiderForbidden(t *testing.T) {
	e := setup(t)
	ctx := testutil.TestContext(t)
	outsider := e.fx.CreateUser(ctx, "Outsider", "outsider@example.com")

	req := testutil.NewAuthenticatedRequest("GET", "/", identity(outsider))
	req = testutil.WithChiURLParam(req, "workspaceID", e.ws.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeList(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeList_AnonymousUnauthorized(t *testing.T) {
	e := setup(t)

	req := testutil.NewRequest("GET", "/")
	req = testutil.WithChiURLParam(req, "workspaceID", e.ws.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeList(rec, req)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestServeRemove_AdminRemovesMember(t *testing.T) {
	e := setup(t)

	req := testutil.NewAuthenticatedRequest("DELETE", "/", identity(e.admin))
	req = testutil.WithChiURLParam(req, "membershipID", e.memberM.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeRemove(rec, req)
	rec.AssertStatus(t, http.StatusNoContent)
}

func TestServeRemove_OwnerImmovable(t *testing.T) {
	e := setup(t)

	for _, caller := range []models.User{e.owner, e.admin} {
		req := testutil.NewAuthenticatedRequest("DELETE", "/", identity(caller))
		req = testutil.WithChiURLParam(req, "membershipID", e.ownerM.ID.Hex())
		rec := testutil.NewRecorder()
		e.handler.ServeRemove(rec, req)
		rec.AssertStatus(t, http.StatusUnprocessableEntity)
		rec.AssertErrorCode(t, "invalid_operation")
	}
}

func TestServeRemove_SelfRemovalDistinctFromNotFound(t *testing.T) {
	e := setup(t)

	req := testutil.NewAuthenticatedRequest("DELETE", "/", identity(e.admin))
	req = testutil.WithChiURLParam(req, "membershipID", e.adminM.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeRemove(rec, req)
	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertErrorCode(t, "invalid_operation")

	req = testutil.NewAuthenticatedRequest("DELETE", "/", identity(e.admin))
	req = testutil.WithChiURLParam(req, "membershipID", primitive.NewObjectID().Hex())
	rec = testutil.NewRecorder()
	e.handler.ServeRemove(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertErrorCode(t, "not_found")
}

func TestServeRemove_MemberForbidden(t *testing.T) {
	e := setup(t)

	req := testutil.NewAuthenticatedRequest("DELETE", "/", identity(e.member))
	req = testutil.WithChiURLParam(req, "membershipID", e.adminM.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeRemove(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertErrorCode(t, "unauthorized")
}

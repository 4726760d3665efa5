package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/quireworks/quire/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active test user.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreatePlatformAdmin creates an active user with the platform admin flag.
func (f *Fixtures) CreatePlatformAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		IsAdmin:    true,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test admin: %v", err)
	}
	return user
}

// CreateDisabledUser creates a test user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Status:     models.StatusDisabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create disabled test user: %v", err)
	}
	return user
}

// CreateTelegramUser creates an active user linked to a Telegram account.
func (f *Fixtures) CreateTelegramUser(ctx context.Context, fullName, email string, telegramID int64) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		TelegramID: &telegramID,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create telegram test user: %v", err)
	}
	return user
}

// CreateWorkspace creates an active test workspace.
func (f *Fixtures) CreateWorkspace(ctx context.Context, name, subdomain string) models.Workspace {
	f.t.Helper()
	return f.createWorkspace(ctx, name, subdomain, models.StatusActive)
}

// CreateDisabledWorkspace creates a workspace with disabled status.
func (f *Fixtures) CreateDisabledWorkspace(ctx context.Context, name, subdomain string) models.Workspace {
	f.t.Helper()
	return f.createWorkspace(ctx, name, subdomain, models.StatusDisabled)
}

func (f *Fixtures) createWorkspace(ctx context.Context, name, subdomain, status string) models.Workspace {
	f.t.Helper()

	now := time.Now().UTC()
	ws := models.Workspace{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Subdomain: subdomain,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("workspaces").InsertOne(ctx, ws); err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// CreateMembership links a user to a workspace with the given role.
func (f *Fixtures) CreateMembership(ctx context.Context, workspaceID, userID primitive.ObjectID, role models.Role) models.Membership {
	f.t.Helper()
	return f.CreateMembershipAt(ctx, workspaceID, userID, role, time.Now().UTC())
}

// CreateMembershipAt is CreateMembership with an explicit join time, for
// tests that depend on membership ordering.
func (f *Fixtures) CreateMembershipAt(ctx context.Context, workspaceID, userID primitive.ObjectID, role models.Role, joinedAt time.Time) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   joinedAt,
	}

	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateAPIKey inserts an API key record directly, bypassing generation.
// Use the apikeys store when a test needs a verifiable plaintext key.
func (f *Fixtures) CreateAPIKey(ctx context.Context, workspaceID primitive.ObjectID, name, publicPrefix, secretHash string) models.APIKey {
	f.t.Helper()

	rec := models.APIKey{
		ID:           primitive.NewObjectID(),
		WorkspaceID:  workspaceID,
		Name:         name,
		PublicPrefix: publicPrefix,
		SecretHash:   secretHash,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := f.db.Collection("api_keys").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("failed to create test api key: %v", err)
	}
	return rec
}

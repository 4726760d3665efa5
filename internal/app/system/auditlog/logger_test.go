package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/quireworks/quire/internal/app/store/audit"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNilLoggerIsNoOp(t *testing.T) {
	var l *auditlog.Logger
	r := httptest.NewRequest("POST", "/api/workspaces/select", nil)

	// Must not panic.
	l.CredentialRejected(r.Context(), r, "api_key", "verification failed")
	l.WorkspaceSelected(r.Context(), r, auditlog.Actor{}, primitive.NewObjectID())
}

func TestOffSettingWritesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := audit.New(db)

	core, logs := observer.New(zap.InfoLevel)
	l := auditlog.New(store, zap.New(core), auditlog.Config{Auth: "off", Admin: "off"})

	r := httptest.NewRequest("DELETE", "/api/memberships/x", nil)
	l.MemberRemoved(ctx, r, auditlog.Actor{}, primitive.NewObjectID(), primitive.NewObjectID())
	l.CredentialRejected(ctx, r, "telegram", "verification failed")

	if logs.Len() != 0 {
		t.Errorf("expected no log output, got %d entries", logs.Len())
	}
	n, err := store.Count(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no stored events, got %d", n)
	}
}

func TestDBSettingStoresWithoutLogging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := audit.New(db)

	core, logs := observer.New(zap.InfoLevel)
	l := auditlog.New(store, zap.New(core), auditlog.Config{Auth: "db", Admin: "db"})

	wsID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()
	r := httptest.NewRequest("POST", "/api/workspaces/"+wsID.Hex()+"/keys", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	l.APIKeyCreated(ctx, r, auditlog.Actor{UserID: actorID.Hex()}, wsID, primitive.NewObjectID(), "qre_abcd1234")

	if logs.Len() != 0 {
		t.Errorf("db mode should not write to the log, got %d entries", logs.Len())
	}

	got, err := store.Query(ctx, audit.QueryFilter{WorkspaceID: &wsID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d stored events, want 1", len(got))
	}
	e := got[0]
	if e.EventType != audit.EventAPIKeyCreated {
		t.Errorf("event type = %q, want %q", e.EventType, audit.EventAPIKeyCreated)
	}
	if e.ActorID == nil || *e.ActorID != actorID {
		t.Error("expected the actor user id to be recorded")
	}
	if e.IP != "203.0.113.9" {
		t.Errorf("ip = %q, want the first X-Forwarded-For entry", e.IP)
	}
	if e.Details["public_prefix"] != "qre_abcd1234" {
		t.Errorf("details = %v, want the public prefix", e.Details)
	}
}

func TestLogSettingSkipsStore(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	// No store wired at all; "log" mode must never touch it.
	l := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "log", Admin: "log"})

	r := httptest.NewRequest("GET", "/api/workspaces", nil)
	l.CredentialRejected(r.Context(), r, "api_key", "unrecognized token format")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	fields := entry.ContextMap()
	if fields["event_type"] != audit.EventCredentialRejected {
		t.Errorf("event_type = %v", fields["event_type"])
	}
	if fields["detail_credential_type"] != "api_key" {
		t.Errorf("credential type detail missing: %v", fields)
	}
	if entry.Level != zap.WarnLevel {
		t.Errorf("failed events should log at warn, got %v", entry.Level)
	}
}

func TestKeyActorGoesToDetails(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := auditlog.New(nil, zap.New(core), auditlog.Config{Admin: "log"})

	wsID := primitive.NewObjectID()
	keyID := primitive.NewObjectID()
	r := httptest.NewRequest("DELETE", "/api/workspaces/"+wsID.Hex()+"/keys/x", nil)

	l.APIKeyDeleted(r.Context(), r, auditlog.Actor{KeyID: keyID.Hex()}, wsID, primitive.NewObjectID())

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if _, hasActor := fields["actor_id"]; hasActor {
		t.Error("key principals must not produce an actor_id")
	}
	if fields["detail_actor_key_id"] != keyID.Hex() {
		t.Errorf("expected the key record id in details, got %v", fields)
	}
}

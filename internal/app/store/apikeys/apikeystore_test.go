package apikeystore_test

import (
	"context"
	"testing"
	"time"

	"github.com/quireworks/quire/internal/app/store/apikeys"
	"github.com/quireworks/quire/internal/app/system/apikey"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newStore(t *testing.T) (*apikeystore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return apikeystore.New(db), testutil.NewFixtures(t, db)
}

func TestCreateAndAuthenticate(t *testing.T) {
	store, _ := newStore(t)
	ctx := testutil.TestContext(t)
	wsID := primitive.NewObjectID()

	rec, plaintext, err := store.Create(ctx, wsID, "deploy key", apikey.DefaultSecretLen)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if plaintext == "" {
		t.Fatal("expected a plaintext key")
	}
	if rec.SecretHash == plaintext {
		t.Fatal("stored hash must not equal the plaintext")
	}

	got, err := store.Authenticate(ctx, plaintext)
	if err != nil {
		t.Fatalf("Authenticate failed for a freshly created key: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("resolved record id: got %s, want %s", got.ID.Hex(), rec.ID.Hex())
	}
	if got.WorkspaceID != wsID {
		t.Errorf("workspace id: got %s, want %s", got.WorkspaceID.Hex(), wsID.Hex())
	}
}

func TestAuthenticate_UnknownPrefixAndWrongSecretLookAlike(t *testing.T) {
	store, _ := newStore(t)
	ctx := testutil.TestContext(t)
	wsID := primitive.NewObjectID()

	_, plaintext, err := store.Create(ctx, wsID, "k", apikey.DefaultSecretLen)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Wrong secret under a known prefix.
	wrongSecret := plaintext[:len(plaintext)-4] + "zzzz"
	_, errWrong := store.Authenticate(ctx, wrongSecret)

	// Unknown prefix entirely.
	other, genErr := apikey.Generate(apikey.DefaultSecretLen)
	if genErr != nil {
		t.Fatalf("Generate failed: %v", genErr)
	}
	_, errUnknown := store.Authenticate(ctx, other.Plaintext)

	for name, err := range map[string]error{"wrong secret": errWrong, "unknown prefix": errUnknown} {
		if authcore.CodeOf(err) != "invalid_credential" {
			t.Errorf("%s: got %v, want invalid_credential", name, err)
		}
	}
}

func TestAuthenticate_MalformedCandidate(t *testing.T) {
	store, _ := newStore(t)
	ctx := testutil.TestContext(t)

	for _, candidate := range []string{"", "qre_short", "sk_live_other_vendor", "qre_"} {
		if _, err := store.Authenticate(ctx, candidate); authcore.CodeOf(err) != "invalid_credential" {
			t.Errorf("candidate %q: got %v, want invalid_credential", candidate, err)
		}
	}
}

func TestAuthenticate_InfrastructureFailureIsNotInvalidCredential(t *testing.T) {
	store, _ := newStore(t)

	// An already-cancelled context forces the lookup itself to fail.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	k, err := apikey.Generate(apikey.DefaultSecretLen)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	_, err = store.Authenticate(ctx, k.Plaintext)
	if authcore.CodeOf(err) != "upstream_unavailable" {
		t.Errorf("got %v, want upstream_unavailable", err)
	}
}

func TestListByWorkspace(t *testing.T) {
	store, _ := newStore(t)
	ctx := testutil.TestContext(t)
	wsA := primitive.NewObjectID()
	wsB := primitive.NewObjectID()

	first, _, err := store.Create(ctx, wsA, "first", apikey.DefaultSecretLen)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, _, err := store.Create(ctx, wsA, "second", apikey.DefaultSecretLen)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, _, err := store.Create(ctx, wsB, "other tenant", apikey.DefaultSecretLen); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	keys, err := store.ListByWorkspace(ctx, wsA)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if keys[0].ID != second.ID || keys[1].ID != first.ID {
		t.Error("expected newest-first ordering")
	}
}

func TestDelete_ScopedToWorkspace(t *testing.T) {
	store, _ := newStore(t)
	ctx := testutil.TestContext(t)
	wsID := primitive.NewObjectID()

	rec, plaintext, err := store.Create(ctx, wsID, "k", apikey.DefaultSecretLen)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// A different workspace cannot delete the key.
	if err := store.Delete(ctx, primitive.NewObjectID(), rec.ID); err != mongo.ErrNoDocuments {
		t.Errorf("cross-tenant delete: got %v, want ErrNoDocuments", err)
	}

	if err := store.Delete(ctx, wsID, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Revocation is immediate.
	if _, err := store.Authenticate(ctx, plaintext); authcore.CodeOf(err) != "invalid_credential" {
		t.Errorf("deleted key: got %v, want invalid_credential", err)
	}

	if err := store.Delete(ctx, wsID, rec.ID); err != mongo.ErrNoDocuments {
		t.Errorf("double delete: got %v, want ErrNoDocuments", err)
	}
}

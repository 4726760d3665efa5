// Package apikeystore is the registry adapter for workspace API keys.
//
// It owns the one persistence interaction the credential core needs:
// resolving a candidate key's public prefix to a stored record and
// handing that record to the pure verifier. It also owns the taxonomy
// mapping for that path: "no record with that prefix" and "hash
// mismatch" are deliberately the same caller-visible outcome, while a
// driver or timeout failure surfaces as upstream unavailability, never
// as an invalid key.
package apikeystore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/quireworks/quire/internal/app/system/apikey"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("api_keys")}
}

// createAttempts bounds retries when a generated key collides with an
// existing public prefix (~2^-48 per pair, but the unique index is the
// authority).
const createAttempts = 3

// Create generates a fresh key, persists (prefix, hash), and returns
// the record together with the plaintext. The plaintext is returned to
// the caller exactly once and never stored.
func (s *Store) Create(ctx context.Context, workspaceID primitive.ObjectID, name string, secretLen int) (models.APIKey, string, error) {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		k, err := apikey.Generate(secretLen)
		if err != nil {
			return models.APIKey{}, "", err
		}

		rec := models.APIKey{
			ID:           primitive.NewObjectID(),
			WorkspaceID:  workspaceID,
			Name:         name,
			PublicPrefix: k.PublicPrefix,
			SecretHash:   k.SecretHash,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := s.c.InsertOne(ctx, rec); err != nil {
			if wafflemongo.IsDup(err) {
				lastErr = err
				continue
			}
			return models.APIKey{}, "", err
		}
		return rec, k.Plaintext, nil
	}
	return models.APIKey{}, "", lastErr
}

// FindByPrefix resolves a record by its public prefix.
// Returns mongo.ErrNoDocuments if no record carries that prefix.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (models.APIKey, error) {
	var rec models.APIKey
	if err := s.c.FindOne(ctx, bson.M{"public_prefix": prefix}).Decode(&rec); err != nil {
		return models.APIKey{}, err
	}
	return rec, nil
}

// Authenticate resolves and verifies a candidate key.
//
// The prefix is extracted with the same slicing rule generation uses,
// so the lookup is a single indexed read rather than a scan. A
// malformed candidate, an unknown prefix, and a wrong secret all return
// ErrInvalidCredential; nothing distinguishes them to the caller.
func (s *Store) Authenticate(ctx context.Context, candidate string) (models.APIKey, error) {
	prefix, ok := apikey.PrefixOf(candidate)
	if !ok {
		return models.APIKey{}, authcore.ErrInvalidCredential
	}

	rec, err := s.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.APIKey{}, authcore.ErrInvalidCredential
		}
		// Lookup failed for infrastructure reasons (including context
		// timeout). Spoofing "invalid key" here would corrupt the error
		// taxonomy the caller sees.
		return models.APIKey{}, authcore.ErrUpstreamUnavailable.WithCause(err)
	}

	if !apikey.Verify(candidate, rec.PublicPrefix, rec.SecretHash) {
		return models.APIKey{}, authcore.ErrInvalidCredential
	}
	return rec, nil
}

// ListByWorkspace returns a workspace's key records, newest first.
// Records carry only the public prefix; the secret hash stays out of
// JSON via the model's field tag.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.APIKey, error) {
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": workspaceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []models.APIKey
	if err := cur.All(ctx, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Delete removes a key scoped to its owning workspace, so a caller can
// never delete another tenant's key by guessing ids. Rotation is
// delete + recreate; secret fields are never updated in place.
func (s *Store) Delete(ctx context.Context, workspaceID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": workspaceID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// internal/domain/models/apikey.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// APIKey is the persisted form of a workspace API key. The plaintext key
// is handed to the caller exactly once at creation and is never stored;
// only a SHA-256 hash and the short public prefix survive.
//
// Invariants:
//   - PublicPrefix is a prefix of the plaintext key that produced SecretHash.
//   - No two records share a PublicPrefix (unique index; lookup would be
//     ambiguous otherwise).
//
// Rotation is delete + recreate; the secret fields are never updated.
type APIKey struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID  primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Name         string             `bson:"name" json:"name"`
	PublicPrefix string             `bson:"public_prefix" json:"public_prefix"`
	SecretHash   string             `bson:"secret_hash" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

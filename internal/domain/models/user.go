// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account that can sign in to Quire.
//
// NOTE:
//   - Workspace membership is not embedded on User.
//     Use the memberships collection to discover a user's workspaces.
//   - IsAdmin is the platform-admin flag. It is authoritative in the
//     database and must be re-read on every admin check so revocation
//     takes effect on the next request.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	TelegramID *int64             `bson:"telegram_id,omitempty" json:"telegram_id,omitempty"`
	IsAdmin    bool               `bson:"is_admin" json:"is_admin"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"` // active | disabled

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Status values shared by users and workspaces.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace represents a top-level tenant container in Quire.
// Each workspace is isolated from others and owns its memberships and
// API keys. All tenant-scoped entities carry a workspace_id field.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Display name for the workspace
	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"` // Case-insensitive for search

	// Subdomain for this workspace (e.g., "acme" for acme.quire.dev)
	// Must be unique across all workspaces
	Subdomain string `bson:"subdomain" json:"subdomain"`

	// Status: "active" or "disabled"
	Status string `bson:"status" json:"status"`

	// Audit fields
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the workspace accepts member traffic.
// Disabled workspaces deny access even to valid credentials.
func (w Workspace) IsActive() bool {
	return w.Status == StatusActive
}

package auth

import (
	"context"
	"net/http"
)

// Authentication methods a request can arrive with.
const (
	MethodSession  = "session"
	MethodAPIKey   = "api_key"
	MethodTelegram = "telegram"
)

// Identity is the request-scoped result of credential verification.
// It is rebuilt from the system of record on every request and never
// cached across requests, so admin revocation and account disabling
// take effect immediately.
//
// Exactly one of UserID / KeyWorkspaceID is set: session and Telegram
// credentials resolve to an application user, API keys resolve to a
// workspace-scoped service principal with no user behind it.
type Identity struct {
	UserID  string // hex ObjectID; empty for API key principals
	Name    string
	Email   string
	IsAdmin bool   // platform-admin flag, resolved at verification time
	Method  string // MethodSession | MethodAPIKey | MethodTelegram

	KeyID          string // api key record id (MethodAPIKey only)
	KeyWorkspaceID string // owning workspace hex id (MethodAPIKey only)
}

type ctxKey string

const identityKey ctxKey = "identity"

// CurrentIdentity returns the verified identity for the request and a
// found flag. ok=false means the request is unauthenticated.
func CurrentIdentity(r *http.Request) (*Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*Identity)
	return id, ok
}

// IdentityFromContext is CurrentIdentity for code that only has a context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

func withIdentity(r *http.Request, id *Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// WithTestIdentity injects an identity into the request context.
// Exported for use in tests only; it simulates what the credential
// middleware does.
func WithTestIdentity(r *http.Request, id *Identity) *http.Request {
	return withIdentity(r, id)
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/quireworks/quire/internal/app/system/apikey"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"github.com/quireworks/quire/internal/domain/models"
	"go.uber.org/zap"
)

// KeyAuthenticator resolves a candidate API key to its stored record.
// Unknown prefix and wrong secret both come back as ErrInvalidCredential;
// infrastructure failures come back as ErrUpstreamUnavailable.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, candidate string) (models.APIKey, error)
}

// APIKeyAuth verifies an API key carried in the Authorization header
// (Bearer scheme) or the X-API-Key header. Requests that already carry
// an identity from an earlier middleware pass through untouched, as do
// requests without either header; requests with a key that fails
// verification are terminated. The key is an opaque bearer token and is
// never accepted as a query parameter. Rejections are audited; audit
// may be nil.
func APIKeyAuth(registry KeyAuthenticator, audit *auditlog.Logger, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentIdentity(r); ok {
				next.ServeHTTP(w, r)
				return
			}

			candidate := bearerToken(r)
			if candidate == "" {
				candidate = r.Header.Get("X-API-Key")
			}
			if candidate == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Tokens without the key tag can't be ours; reject without a
			// registry round-trip.
			if !strings.HasPrefix(candidate, apikey.Tag) {
				audit.CredentialRejected(r.Context(), r, "api_key", "unrecognized token format")
				authcore.WriteError(w, log, authcore.ErrInvalidCredential)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			defer cancel()

			rec, err := registry.Authenticate(ctx, candidate)
			if err != nil {
				if errors.Is(err, authcore.ErrInvalidCredential) {
					audit.CredentialRejected(ctx, r, "api_key", "verification failed")
				}
				authcore.WriteError(w, log, err)
				return
			}

			id := &Identity{
				Method:         MethodAPIKey,
				Name:           rec.Name,
				KeyID:          rec.ID.Hex(),
				KeyWorkspaceID: rec.WorkspaceID.Hex(),
			}
			next.ServeHTTP(w, withIdentity(r, id))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const scheme = "Bearer "
	if len(h) > len(scheme) && strings.EqualFold(h[:len(scheme)], scheme) {
		return strings.TrimSpace(h[len(scheme):])
	}
	return ""
}

// Package auth turns an inbound credential (session cookie, API key
// header, or Telegram init-data) into a request-scoped Identity.
//
// Each credential scheme has its own middleware. A middleware that sees
// no credential of its kind passes the request through untouched; a
// middleware that sees a credential and cannot verify it terminates the
// request. Absence of identity downstream always means "not authorized"
// (fail closed), enforced by RequireIdentity.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// UserFetcher loads a fresh Identity for a user id. A nil Identity
// with a nil error means the user does not exist or is disabled; a
// non-nil error means the lookup failed and says nothing about the
// credential.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*Identity, error)
}

// SessionManager owns the session cookie store. It is constructed once
// at startup and injected where needed; there is no package-level store.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	fetcher UserFetcher
}

// NewSessionManager builds a cookie-backed session manager.
//
// In production (secure=true) cookies are Secure with SameSite=None so
// they work across workspace subdomains over HTTPS; in local dev over
// plain HTTP, Lax keeps them accepted.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher wires the per-request user lookup. Until a fetcher is
// set, sessions never authenticate anyone.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// LoadSessionUser resolves the session cookie to an Identity for each
// request. The user record is fetched fresh every time so role changes
// and disabled accounts take effect on the next request. A missing or
// disabled user leaves the request anonymous; a lookup failure is an
// upstream outage and terminates the request as 503, because a valid
// session must never be silently de-authenticated by infrastructure.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		sess, _ := sm.store.Get(r, sm.name)
		userID, _ := sess.Values[userIDKey].(string)
		if userID == "" || sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		id, err := sm.fetcher.FetchUser(ctx, userID)
		if err != nil {
			authcore.WriteError(w, sm.log, authcore.ErrUpstreamUnavailable.WithCause(err))
			return
		}
		if id == nil {
			next.ServeHTTP(w, r)
			return
		}
		id.Method = MethodSession
		next.ServeHTTP(w, withIdentity(r, id))
	})
}

// SignIn records the user id in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Options.MaxAge = -1
	delete(sess.Values, userIDKey)
	return sess.Save(r, w)
}

// RequireIdentity rejects unauthenticated requests with the generic
// invalid-credential outcome. It must run after the credential
// middleware.
func RequireIdentity(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentIdentity(r); !ok {
				authcore.WriteError(w, log, authcore.ErrInvalidCredential)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

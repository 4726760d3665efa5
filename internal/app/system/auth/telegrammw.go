package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/app/system/authcore"
	"github.com/quireworks/quire/internal/app/system/telegram"
	"github.com/quireworks/quire/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// TelegramUserLookup maps a verified Telegram user id to an application
// user. A nil Identity with a nil error means no matching active user;
// the request is rejected rather than auto-provisioned. A non-nil error
// means the lookup failed and says nothing about the credential.
type TelegramUserLookup interface {
	FetchTelegramUser(ctx context.Context, telegramID int64) (*Identity, error)
}

// TelegramAuth verifies Telegram Mini-App init-data carried in the
// X-Telegram-Init-Data header or an Authorization header with the "tma"
// scheme. Requests without init-data pass through anonymous; a payload
// that fails signature or staleness checks terminates the request.
// The raw init-data is never logged or audited.
func TelegramAuth(botToken string, maxAge time.Duration, users TelegramUserLookup, audit *auditlog.Logger, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentIdentity(r); ok {
				next.ServeHTTP(w, r)
				return
			}

			raw := initData(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			if botToken == "" {
				// Telegram auth not configured; a supplied credential
				// cannot be verified, so it is invalid.
				audit.CredentialRejected(r.Context(), r, "telegram", "not configured")
				authcore.WriteError(w, log, authcore.ErrInvalidCredential)
				return
			}

			tgID, err := telegram.Verify(raw, botToken, maxAge)
			if err != nil {
				if errors.Is(err, authcore.ErrInvalidCredential) {
					audit.CredentialRejected(r.Context(), r, "telegram", "verification failed")
				}
				authcore.WriteError(w, log, err)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			defer cancel()

			id, err := users.FetchTelegramUser(ctx, tgID.UserID)
			if err != nil {
				// The signature already checked out; a lookup failure is
				// an outage, not a bad credential.
				authcore.WriteError(w, log, authcore.ErrUpstreamUnavailable.WithCause(err))
				return
			}
			if id == nil {
				audit.CredentialRejected(ctx, r, "telegram", "no matching user")
				authcore.WriteError(w, log, authcore.ErrInvalidCredential)
				return
			}
			id.Method = MethodTelegram
			next.ServeHTTP(w, withIdentity(r, id))
		})
	}
}

func initData(r *http.Request) string {
	if v := r.Header.Get("X-Telegram-Init-Data"); v != "" {
		return v
	}
	h := r.Header.Get("Authorization")
	const scheme = "tma "
	if len(h) > len(scheme) && strings.EqualFold(h[:len(scheme)], scheme) {
		return strings.TrimSpace(h[len(scheme):])
	}
	return ""
}

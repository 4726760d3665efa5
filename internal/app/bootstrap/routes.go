// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	apikeysfeature "github.com/quireworks/quire/internal/app/features/apikeys"
	healthfeature "github.com/quireworks/quire/internal/app/features/health"
	membersfeature "github.com/quireworks/quire/internal/app/features/members"
	userinfofeature "github.com/quireworks/quire/internal/app/features/userinfo"
	workspacesfeature "github.com/quireworks/quire/internal/app/features/workspaces"
	apikeystore "github.com/quireworks/quire/internal/app/store/apikeys"
	auditstore "github.com/quireworks/quire/internal/app/store/audit"
	membershipstore "github.com/quireworks/quire/internal/app/store/memberships"
	userstore "github.com/quireworks/quire/internal/app/store/users"
	workspacestore "github.com/quireworks/quire/internal/app/store/workspaces"
	"github.com/quireworks/quire/internal/app/system/affinity"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/app/system/authz"
	"github.com/quireworks/quire/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and Startup have completed.
//
// The credential middleware stack layers three schemes: the session
// cookie, API keys (Bearer / X-API-Key), and Telegram init-data. Each
// middleware is pass-through when its credential is absent and
// terminal when a credential is present but invalid; RequireIdentity
// then enforces the fail-closed default for the API surface.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(
		appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.QuireMongoDatabase
	users := userstore.New(db)
	memberships := membershipstore.New(db)
	workspaces := workspacestore.New(db)
	apikeys := apikeystore.New(db)

	// Fresh user data on each request so role changes and disabled
	// accounts take effect immediately.
	fetcher := userstore.NewFetcher(db)
	sessionMgr.SetUserFetcher(fetcher)

	authorize := authz.New(users, memberships, workspaces, logger)
	hints := affinity.NewHintCodec([]byte(appCfg.HintKey), secure)
	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditAuth,
		Admin: appCfg.AuditAdmin,
	})

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.QuireMongoClient, logger)
	r.Mount("/healthz", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		if appCfg.RateLimitRequests > 0 {
			api.Use(ratelimit.Middleware(appCfg.RateLimitRequests, appCfg.RateLimitWindow))
		}
		api.Use(sessionMgr.LoadSessionUser)
		api.Use(auth.APIKeyAuth(apikeys, audit, logger))
		api.Use(auth.TelegramAuth(appCfg.TelegramBotToken, appCfg.TelegramInitDataMaxAge, fetcher, audit, logger))

		// Identity echo works for anonymous callers too.
		userinfofeature.MountRoutes(api, userinfofeature.NewHandler(authorize, logger))

		api.Group(func(protected chi.Router) {
			protected.Use(auth.RequireIdentity(logger))

			workspacesfeature.MountRoutes(protected, workspacesfeature.NewHandler(workspaces, memberships, hints, audit, logger))
			membersfeature.MountRoutes(protected, membersfeature.NewHandler(memberships, users, authorize, audit, logger))

			keysHandler := apikeysfeature.NewHandler(apikeys, authorize, appCfg.APIKeySecretLength, audit, logger)
			protected.Mount("/workspaces/{workspaceID}/keys", apikeysfeature.Routes(keysHandler))
		})
	})

	return r, nil
}

// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	auditstore "github.com/quireworks/quire/internal/app/store/audit"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// Quire's only startup task is the platform-admin bootstrap: if
// platform_admin_email is configured and a user with that email exists,
// the user is promoted. A missing user is logged, not fatal, so a fresh
// deployment can start before its first admin signs up.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.PlatformAdminEmail == "" {
		return nil
	}

	users := userstore.New(deps.QuireMongoDatabase)
	promoted, err := users.PromoteByEmail(ctx, appCfg.PlatformAdminEmail)
	if err != nil {
		return err
	}
	if promoted {
		logger.Info("platform admin promoted",
			zap.String("email", appCfg.PlatformAdminEmail))
		if u, err := users.GetByEmail(ctx, appCfg.PlatformAdminEmail); err == nil {
			auditor := auditlog.New(auditstore.New(deps.QuireMongoDatabase), logger, auditlog.Config{
				Auth:  appCfg.AuditAuth,
				Admin: appCfg.AuditAdmin,
			})
			auditor.Log(ctx, auditstore.Event{
				Category:  auditstore.CategoryAdmin,
				EventType: auditstore.EventUserPromoted,
				UserID:    &u.ID,
				Success:   true,
				Details:   map[string]string{"trigger": "startup"},
			})
		}
	} else {
		logger.Warn("platform admin email not found; no user promoted",
			zap.String("email", appCfg.PlatformAdminEmail))
	}
	return nil
}

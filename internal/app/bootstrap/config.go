// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Quire.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: QUIRE_MONGO_URI, QUIRE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "quire", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "quire-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "720h", Desc: "Session lifetime (e.g., 720h for 30 days)"},

	{Name: "hint_key", Default: "", Desc: "Signing key for the workspace hint cookie (defaults to session_key)"},

	{Name: "api_key_secret_length", Default: 32, Desc: "Random bytes behind each issued API key"},

	{Name: "telegram_bot_token", Default: "", Desc: "Telegram bot token for Mini-App auth (empty disables it)"},
	{Name: "telegram_initdata_max_age", Default: "1h", Desc: "Maximum accepted age of Telegram init-data"},

	// Multi-workspace configuration
	{Name: "multi_workspace", Default: false, Desc: "Enable multi-workspace mode (subdomain-based tenancy)"},
	{Name: "primary_domain", Default: "", Desc: "Primary domain for cross-subdomain cookies (e.g., 'quire.dev')"},

	// Platform admin bootstrap
	{Name: "platform_admin_email", Default: "", Desc: "Email of the platform admin user (promoted on startup)"},

	// Audit trail
	{Name: "audit_auth", Default: "all", Desc: "Credential audit events: all, db, log, or off"},
	{Name: "audit_admin", Default: "all", Desc: "Admin action audit events: all, db, log, or off"},

	// Rate limiting
	{Name: "rate_limit_requests", Default: 300, Desc: "Max API requests per client IP per window (0 disables)"},
	{Name: "rate_limit_window", Default: "1m", Desc: "Rate limit window duration"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, QUIRE_* for app), and
// command-line flags, merged with precedence flags > env > files >
// defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "QUIRE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionTTL:    appValues.Duration("session_ttl", 720*time.Hour),

		HintKey: appValues.String("hint_key"),

		APIKeySecretLength: appValues.Int("api_key_secret_length"),

		TelegramBotToken:       appValues.String("telegram_bot_token"),
		TelegramInitDataMaxAge: appValues.Duration("telegram_initdata_max_age", time.Hour),

		MultiWorkspace: appValues.Bool("multi_workspace"),
		PrimaryDomain:  appValues.String("primary_domain"),

		PlatformAdminEmail: appValues.String("platform_admin_email"),

		AuditAuth:  appValues.String("audit_auth"),
		AuditAdmin: appValues.String("audit_admin"),

		RateLimitRequests: appValues.Int("rate_limit_requests"),
		RateLimitWindow:   appValues.Duration("rate_limit_window", time.Minute),
	}

	if appCfg.HintKey == "" {
		appCfg.HintKey = appCfg.SessionKey
	}

	// Auto-derive session domain in multi-workspace mode if not explicitly
	// set. Cross-subdomain cookies need the leading dot.
	if appCfg.MultiWorkspace && appCfg.SessionDomain == "" && appCfg.PrimaryDomain != "" {
		appCfg.SessionDomain = "." + appCfg.PrimaryDomain
		logger.Info("auto-derived session domain for multi-workspace mode",
			zap.String("session_domain", appCfg.SessionDomain))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Quire validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.MultiWorkspace && appCfg.PrimaryDomain == "" {
		return fmt.Errorf("multi_workspace mode requires primary_domain to be set (e.g., 'quire.dev')")
	}

	if appCfg.APIKeySecretLength < 16 {
		return fmt.Errorf("api_key_secret_length must be at least 16 bytes")
	}

	if appCfg.TelegramInitDataMaxAge <= 0 {
		return fmt.Errorf("telegram_initdata_max_age must be positive")
	}

	for name, v := range map[string]string{"audit_auth": appCfg.AuditAuth, "audit_admin": appCfg.AuditAdmin} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of: all, db, log, off (got %q)", name, v)
		}
	}

	if appCfg.RateLimitRequests > 0 && appCfg.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window must be positive when rate limiting is enabled")
	}

	return nil
}

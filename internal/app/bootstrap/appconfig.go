// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP/HTTPS
// ports, TLS, logging level, request limits); AppConfig is everything
// specific to Quire. Values come from environment variables, config
// files, or command-line flags, loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // Session lifetime

	// Workspace selection hint cookie
	HintKey string // Signing key for the workspace hint cookie; falls back to SessionKey

	// API key issuing
	APIKeySecretLength int // Random bytes behind each issued key

	// Telegram Mini-App verification
	TelegramBotToken       string        // Bot token; empty disables Telegram auth
	TelegramInitDataMaxAge time.Duration // Staleness window for auth_date

	// Multi-workspace configuration
	MultiWorkspace bool   // Subdomain-based tenancy
	PrimaryDomain  string // Primary domain for cross-subdomain cookies (e.g., quire.dev)

	// Platform admin bootstrap
	PlatformAdminEmail string // Email promoted to platform admin on startup

	// Audit trail destinations: "all", "db", "log", or "off"
	AuditAuth  string // credential events
	AuditAdmin string // privileged mutations

	// Per-IP rate limit on the API surface
	RateLimitRequests int           // requests per window; 0 disables limiting
	RateLimitWindow   time.Duration // window duration
}

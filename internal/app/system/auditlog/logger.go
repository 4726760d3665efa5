// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strings"

	"github.com/quireworks/quire/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for credential events (rejections, sign-in/out).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for privileged mutations (key and membership changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger records audit events to MongoDB (via audit.Store) and to
// structured logs (via zap), per Config. A nil *Logger is a no-op so
// handlers can be constructed without auditing in tests.
//
// Events never carry credential material. Key events record the public
// prefix only, which is already shown to users in listings.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// hexID converts a hex object id to a pointer, nil if empty or malformed.
func hexID(s string) *primitive.ObjectID {
	if s == "" {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil
	}
	return &oid
}

// Actor identifies who performed an action. Exactly one of UserID or
// KeyID is set; API key principals have no user behind them.
type Actor struct {
	UserID string // hex object id, session and Telegram principals
	KeyID  string // hex object id of the key record, API key principals
}

// actorFields fills actor information on an event. The key record id
// goes into Details because ActorID always references a user.
func actorFields(event *audit.Event, actor Actor) {
	if actor.UserID != "" {
		event.ActorID = hexID(actor.UserID)
		return
	}
	if actor.KeyID != "" {
		if event.Details == nil {
			event.Details = map[string]string{}
		}
		event.Details["actor_key_id"] = actor.KeyID
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.WorkspaceID != nil {
		fields = append(fields, zap.String("workspace_id", event.WorkspaceID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event per configuration. Nil receivers no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// --- Credential events ---

// CredentialRejected logs a rejected credential. credentialType names
// the mechanism ("api_key", "telegram", "session"), never the value.
func (l *Logger) CredentialRejected(ctx context.Context, r *http.Request, credentialType, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventCredentialRejected,
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"credential_type": credentialType},
	})
}

// --- Privileged mutations ---

// APIKeyCreated logs the minting of a new key.
func (l *Logger) APIKeyCreated(ctx context.Context, r *http.Request, actor Actor, workspaceID, keyID primitive.ObjectID, publicPrefix string) {
	event := audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventAPIKeyCreated,
		WorkspaceID: &workspaceID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Success:     true,
		Details: map[string]string{
			"key_id":        keyID.Hex(),
			"public_prefix": publicPrefix,
		},
	}
	actorFields(&event, actor)
	l.Log(ctx, event)
}

// APIKeyDeleted logs key revocation.
func (l *Logger) APIKeyDeleted(ctx context.Context, r *http.Request, actor Actor, workspaceID, keyID primitive.ObjectID) {
	event := audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventAPIKeyDeleted,
		WorkspaceID: &workspaceID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Success:     true,
		Details:     map[string]string{"key_id": keyID.Hex()},
	}
	actorFields(&event, actor)
	l.Log(ctx, event)
}

// MemberRemoved logs a membership removal. removedUserID is the user
// whose access was revoked.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actor Actor, workspaceID, removedUserID primitive.ObjectID) {
	event := audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventMemberRemoved,
		WorkspaceID: &workspaceID,
		UserID:      &removedUserID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Success:     true,
	}
	actorFields(&event, actor)
	l.Log(ctx, event)
}

// WorkspaceSelected logs an explicit workspace selection.
func (l *Logger) WorkspaceSelected(ctx context.Context, r *http.Request, actor Actor, workspaceID primitive.ObjectID) {
	event := audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   audit.EventWorkspaceSelected,
		WorkspaceID: &workspaceID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Success:     true,
	}
	actorFields(&event, actor)
	l.Log(ctx, event)
}

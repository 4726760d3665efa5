package bootstrap

import (
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/quireworks/quire/internal/app/store/users"
	"github.com/quireworks/quire/internal/testutil"
	"go.uber.org/zap"
)

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:               "mongodb://localhost:27017",
		MongoDatabase:          "quire",
		SessionKey:             "0123456789abcdef0123456789abcdef",
		SessionName:            "quire-session",
		SessionTTL:             time.Hour,
		HintKey:                "0123456789abcdef0123456789abcdef",
		APIKeySecretLength:     32,
		TelegramInitDataMaxAge: time.Hour,
		AuditAuth:              "all",
		AuditAdmin:             "all",
		RateLimitRequests:      300,
		RateLimitWindow:        time.Minute,
	}
}

func TestValidateConfig(t *testing.T) {
	logger := zap.NewNop()

	if err := ValidateConfig(nil, validAppConfig(), logger); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := validAppConfig()
	bad.MongoURI = "not-a-mongo-uri"
	if err := ValidateConfig(nil, bad, logger); err == nil {
		t.Error("expected rejection of a malformed mongo uri")
	}

	bad = validAppConfig()
	bad.MultiWorkspace = true
	if err := ValidateConfig(nil, bad, logger); err == nil {
		t.Error("expected rejection of multi-workspace mode without a primary domain")
	}

	bad = validAppConfig()
	bad.APIKeySecretLength = 8
	if err := ValidateConfig(nil, bad, logger); err == nil {
		t.Error("expected rejection of a short api key secret length")
	}

	bad = validAppConfig()
	bad.TelegramInitDataMaxAge = -time.Minute
	if err := ValidateConfig(nil, bad, logger); err == nil {
		t.Error("expected rejection of a negative init-data window")
	}

	bad = validAppConfig()
	bad.AuditAdmin = "verbose"
	if err := ValidateConfig(nil, bad, logger); err == nil {
		t.Error("expected rejection of an unknown audit setting")
	}

	bad = validAppConfig()
	bad.RateLimitWindow = 0
	if err := ValidateConfig(nil, bad, logger); err == nil {
		t.Error("expected rejection of a zero rate limit window")
	}
}

func TestStartup_PromotesPlatformAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := testutil.TestContext(t)

	u := fx.CreateUser(ctx, "Root", "root@example.com")

	cfg := validAppConfig()
	cfg.PlatformAdminEmail = "root@example.com"
	deps := DBDeps{QuireMongoClient: db.Client(), QuireMongoDatabase: db}

	if err := Startup(ctx, nil, cfg, deps, zap.NewNop()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}

	got, err := userstore.New(db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsAdmin {
		t.Error("expected the configured user to be promoted")
	}
}

func TestStartup_MissingAdminEmailIsNotFatal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	cfg := validAppConfig()
	cfg.PlatformAdminEmail = "nobody@example.com"
	deps := DBDeps{QuireMongoClient: db.Client(), QuireMongoDatabase: db}

	if err := Startup(ctx, nil, cfg, deps, zap.NewNop()); err != nil {
		t.Errorf("Startup must tolerate an unknown admin email, got %v", err)
	}
}

func TestBuildHandler_RejectsEmptySessionKey(t *testing.T) {
	cfg := validAppConfig()
	cfg.SessionKey = ""
	if _, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, DBDeps{}, zap.NewNop()); err == nil {
		t.Error("expected an error for an empty session key")
	}
}

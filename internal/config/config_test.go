package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/genrelay")
	t.Setenv("DB_DSN", "")
	t.Setenv("KLING_POLL_INTERVAL", "")
	t.Setenv("VEO_POLL_MAX_ATTEMPTS", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	cfg := Load()
	if cfg.DBDSN != "sqlite:/tmp/genrelay/genrelay.db" {
		t.Fatalf("unexpected dsn: %q", cfg.DBDSN)
	}
	if cfg.KlingPollInterval != 5*time.Second || cfg.KlingPollMaxAttempts != 60 {
		t.Fatalf("unexpected kling poll config: %s x %d", cfg.KlingPollInterval, cfg.KlingPollMaxAttempts)
	}
	if cfg.VeoPollMaxAttempts != 120 {
		t.Fatalf("unexpected veo attempts: %d", cfg.VeoPollMaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoad_DurationFormats(t *testing.T) {
	t.Setenv("KLING_POLL_INTERVAL", "250ms")
	t.Setenv("VEO_POLL_INTERVAL", "1500")

	cfg := Load()
	if cfg.KlingPollInterval != 250*time.Millisecond {
		t.Fatalf("kling interval = %s", cfg.KlingPollInterval)
	}
	if cfg.VeoPollInterval != 1500*time.Millisecond {
		t.Fatalf("veo interval = %s", cfg.VeoPollInterval)
	}
}

func TestValidate_RejectsDefaultSecretWithAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	cfg := Load()
	if !cfg.AuthEnabled() {
		t.Fatalf("expected auth enabled")
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for default jwt secret")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Type != "memory" {
		t.Errorf("Database.Type = %q, want memory", cfg.Database.Type)
	}
	if cfg.Gate.TokenTTL != time.Hour {
		t.Errorf("Gate.TokenTTL = %v, want 1h", cfg.Gate.TokenTTL)
	}
	if cfg.Gate.HoneypotField != "website" {
		t.Errorf("Gate.HoneypotField = %q, want website", cfg.Gate.HoneypotField)
	}
	if cfg.RateLimit.Limit != 10 {
		t.Errorf("RateLimit.Limit = %d, want 10", cfg.RateLimit.Limit)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit.Window = %v, want 1m", cfg.RateLimit.Window)
	}
	if len(cfg.CORS.AllowedHosts) != 1 || cfg.CORS.AllowedHosts[0] != "github.io" {
		t.Errorf("CORS.AllowedHosts = %v, want [github.io]", cfg.CORS.AllowedHosts)
	}
	if cfg.Webhook.Timeout != 3*time.Second {
		t.Errorf("Webhook.Timeout = %v, want 3s", cfg.Webhook.Timeout)
	}
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("RTG_DATABASE_TYPE", "postgres")

	if _, err := Load(""); err == nil {
		t.Error("Load() with database.type=postgres and no URL should fail")
	}
}

func TestLoadRejectsNonPositiveTokenTTL(t *testing.T) {
	t.Setenv("RTG_GATE_TOKEN_TTL", "0s")

	if _, err := Load(""); err == nil {
		t.Error("Load() with gate.token_ttl=0s should fail")
	}
}

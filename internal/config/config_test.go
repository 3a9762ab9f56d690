package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TESSERA_AUTH_SALT", "pepper")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.Auth.TokenTTL)
	}
	if cfg.Rate.Burst != 20 || cfg.Rate.PerSecond != 10 {
		t.Fatalf("unexpected rate config: %+v", cfg.Rate)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TESSERA_AUTH_SALT", "pepper")
	t.Setenv("TESSERA_ADDR", ":9090")
	t.Setenv("TESSERA_TOKEN_TTL", "30m")
	t.Setenv("TESSERA_PG_DSN", "postgres://localhost/tessera")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.Auth.TokenTTL)
	}
	if cfg.Database.DSN != "postgres://localhost/tessera" {
		t.Fatalf("unexpected dsn: %s", cfg.Database.DSN)
	}
}

func TestLoadRequiresSalt(t *testing.T) {
	t.Setenv("TESSERA_AUTH_SALT", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without salt")
	}
}

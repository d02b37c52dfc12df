package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := []byte(`
server:
  port: "9000"
postgres:
  url: postgres://file
redis:
  addr: localhost:6379
  ttl: 5m
answerKey:
  ttl: 30s
log:
  level: debug
`)
	if err := os.WriteFile(path, yamlData, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected port from file, got %q", cfg.Server.Port)
	}
	if cfg.Postgres.URL != "postgres://env" {
		t.Fatalf("expected env override, got %q", cfg.Postgres.URL)
	}
	if got := TTLDuration(cfg.AnswerKey.TTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s answer key ttl, got %v", got)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected env port, got %q", cfg.Server.Port)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid, got %v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("REST_POLLS_TEST_VAR=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("REST_POLLS_TEST_VAR", "")
	os.Unsetenv("REST_POLLS_TEST_VAR")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("REST_POLLS_TEST_VAR"); got != "loaded" {
		t.Fatalf("expected variable from .env, got %q", got)
	}
}

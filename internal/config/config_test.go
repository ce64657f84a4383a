package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "7007" {
		t.Errorf("expected default port '7007', got '%s'", cfg.Port)
	}
	if cfg.JWTSecret != "dev-secret-change-in-prod" {
		t.Errorf("expected default JWT secret, got '%s'", cfg.JWTSecret)
	}
	if cfg.MigrationsPath != "migrations" {
		t.Errorf("expected default migrations path, got '%s'", cfg.MigrationsPath)
	}
	if len(cfg.AppConfigPaths) != 1 || cfg.AppConfigPaths[0] != "app-config.yaml" {
		t.Errorf("expected default app config path, got %v", cfg.AppConfigPaths)
	}
	if cfg.KafkaConsumerGroup != "portal-user-settings" {
		t.Errorf("expected default consumer group, got '%s'", cfg.KafkaConsumerGroup)
	}
	if !cfg.GuestEnabled {
		t.Error("expected guest sessions to be enabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("APP_CONFIG_PATHS", "base.yaml, prod.yaml,,")
	os.Setenv("GUEST_ENABLED", "false")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("APP_CONFIG_PATHS")
	defer os.Unsetenv("GUEST_ENABLED")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port '9090', got '%s'", cfg.Port)
	}
	if len(cfg.AppConfigPaths) != 2 || cfg.AppConfigPaths[1] != "prod.yaml" {
		t.Errorf("expected two app config paths, got %v", cfg.AppConfigPaths)
	}
	if cfg.GuestEnabled {
		t.Error("expected guest sessions to be disabled")
	}
}

func TestGetEnvFallback(t *testing.T) {
	result := getEnv("NONEXISTENT_VAR_12345", "fallback")
	if result != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", result)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PORT=8088\nSCALPRUM_UPSTREAM=http://backend:7007\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	os.Setenv("SCALPRUM_UPSTREAM", "http://already-set:7007")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("SCALPRUM_UPSTREAM")

	LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	cfg := Load()

	if cfg.Port != "8088" {
		t.Errorf("expected port from .env, got '%s'", cfg.Port)
	}
	if cfg.ScalprumUpstream != "http://already-set:7007" {
		t.Errorf("existing variables must win, got '%s'", cfg.ScalprumUpstream)
	}
}

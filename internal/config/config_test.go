// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testSecret satisfies the minimum JWT secret length.
const testSecret = "unit-test-secret-0123456789"

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Server.Timeout = %v, want 30s", cfg.Server.Timeout)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("Server.AllowedOrigins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
	if cfg.Database.Dir != "./data" {
		t.Errorf("Database.Dir = %q, want ./data", cfg.Database.Dir)
	}
	if cfg.Auth.JWTTTLMinutes != 720 {
		t.Errorf("Auth.JWTTTLMinutes = %d, want 720", cfg.Auth.JWTTTLMinutes)
	}
	if cfg.Forms.Dir != "./forms" {
		t.Errorf("Forms.Dir = %q, want ./forms", cfg.Forms.Dir)
	}
	if cfg.LDX.PollInterval != time.Second {
		t.Errorf("LDX.PollInterval = %v, want 1s", cfg.LDX.PollInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %q/%q, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("HTTP_TIMEOUT", "45s")
	t.Setenv("DATA_DIR", "/tmp/pitwall-data")
	t.Setenv("JWT_TTL_MINUTES", "60")
	t.Setenv("FORMS_DIR", "/tmp/pitwall-forms")
	t.Setenv("LDX_WATCH_DIR", "/tmp/ldx")
	t.Setenv("LDX_POLL_INTERVAL", "2s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 45*time.Second {
		t.Errorf("Server.Timeout = %v, want 45s", cfg.Server.Timeout)
	}
	if cfg.Database.Dir != "/tmp/pitwall-data" {
		t.Errorf("Database.Dir = %q, want /tmp/pitwall-data", cfg.Database.Dir)
	}
	if cfg.Auth.JWTTTLMinutes != 60 {
		t.Errorf("Auth.JWTTTLMinutes = %d, want 60", cfg.Auth.JWTTTLMinutes)
	}
	if cfg.LDX.WatchDir != "/tmp/ldx" {
		t.Errorf("LDX.WatchDir = %q, want /tmp/ldx", cfg.LDX.WatchDir)
	}
	if cfg.LDX.PollInterval != 2*time.Second {
		t.Errorf("LDX.PollInterval = %v, want 2s", cfg.LDX.PollInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoadAllowedOriginsSlice(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://pit.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []string{"http://localhost:5173", "https://pit.example.com"}
	if len(cfg.Server.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.Server.AllowedOrigins[i] != origin {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.Server.AllowedOrigins[i], origin)
		}
	}
}

func TestLoadMissingJWTSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded without JWT_SECRET, want error")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("error = %q, want mention of jwt_secret", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pitwall.yaml")
	content := `
server:
  port: 8080
auth:
  jwt_secret: file-provided-secret-value
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 from file", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "file-provided-secret-value" {
		t.Errorf("Auth.JWTSecret = %q, want file value", cfg.Auth.JWTSecret)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	// Defaults still apply for keys the file does not set.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pitwall.yaml")
	content := `
server:
  port: 8080
auth:
  jwt_secret: file-provided-secret-value
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.Auth.JWTSecret = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }, "timeout"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"zero ttl", func(c *Config) { c.Auth.JWTTTLMinutes = 0 }, "jwt_ttl_minutes"},
		{"empty data dir", func(c *Config) { c.Database.Dir = "" }, "data"},
		{"empty forms dir", func(c *Config) { c.Forms.Dir = "" }, "forms"},
		{"tiny poll interval", func(c *Config) { c.LDX.PollInterval = 10 * time.Millisecond }, "poll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() passed, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Host = "10.0.0.1"
	cfg.Server.Port = 8123

	if got := cfg.Server.Addr(); got != "10.0.0.1:8123" {
		t.Errorf("Addr() = %q, want 10.0.0.1:8123", got)
	}

	cfg.Database.Dir = "/var/lib/pitwall"
	if got := cfg.Database.Path(); got != filepath.Join("/var/lib/pitwall", "pitwall.db") {
		t.Errorf("Path() = %q", got)
	}

	cfg.Auth.JWTTTLMinutes = 90
	if got := cfg.Auth.TokenTTL(); got != 90*time.Minute {
		t.Errorf("TokenTTL() = %v, want 90m", got)
	}
}

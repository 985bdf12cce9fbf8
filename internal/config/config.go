// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package config loads and validates the server configuration from
// layered sources: struct defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Forms    FormsConfig    `koanf:"forms"`
	LDX      LDXConfig      `koanf:"ldx"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	Timeout        time.Duration `koanf:"timeout"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the store location. The database is a single
// SQLite file inside Dir.
type DatabaseConfig struct {
	Dir string `koanf:"dir"`
}

// Path returns the full path of the database file.
func (d DatabaseConfig) Path() string {
	return filepath.Join(d.Dir, "pitwall.db")
}

// AuthConfig holds JWT settings and the bootstrap admin credentials.
// AdminUsername/AdminPassword are consulted only when the user table
// is empty at boot.
type AuthConfig struct {
	JWTSecret     string `koanf:"jwt_secret"`
	JWTTTLMinutes int    `koanf:"jwt_ttl_minutes"`
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
}

// TokenTTL returns the JWT lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWTTTLMinutes) * time.Minute
}

// FormsConfig holds the form descriptor directory.
type FormsConfig struct {
	Dir string `koanf:"dir"`
}

// LDXConfig holds the watcher settings. WatchDir is only the initial
// value: once persisted, the stored setting is authoritative.
type LDXConfig struct {
	WatchDir     string        `koanf:"watch_dir"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for boot-blocking problems.
// A validation error here exits the process with code 1.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.JWTTTLMinutes <= 0 {
		return fmt.Errorf("auth.jwt_ttl_minutes must be positive, got %d", c.Auth.JWTTTLMinutes)
	}
	if c.Database.Dir == "" {
		return fmt.Errorf("database.dir must not be empty")
	}
	if c.Forms.Dir == "" {
		return fmt.Errorf("forms.dir must not be empty")
	}
	if c.LDX.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("ldx.poll_interval must be at least 100ms, got %s", c.LDX.PollInterval)
	}
	return nil
}

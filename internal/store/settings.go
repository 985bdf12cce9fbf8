// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"database/sql"
	"errors"

	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// Persisted setting keys. The settings table is a plain key/value store;
// these are the keys the server itself reads and writes.
const (
	SettingWatchDirectory   = "watch_directory"
	SettingSerialConfig     = "serial_config"
	SettingSourcePreference = "source_preference"
)

// GetSetting returns a setting value, or ok=false when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapError(err, "query setting")
	}
	return value, true, nil
}

// PutSetting upserts a setting value.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return mapError(err, "put setting")
	}
	return nil
}

// DeleteSetting removes a setting; missing keys are a no-op.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return mapError(err, "delete setting")
	}
	return nil
}

// WatchDirectory returns the persisted watch directory, or empty when
// none is configured.
func (s *Store) WatchDirectory(ctx context.Context) (string, error) {
	v, _, err := s.GetSetting(ctx, SettingWatchDirectory)
	return v, err
}

// SetWatchDirectory persists the watch directory. An empty path clears
// the setting, which pauses the watcher.
func (s *Store) SetWatchDirectory(ctx context.Context, path string) error {
	if path == "" {
		return s.DeleteSetting(ctx, SettingWatchDirectory)
	}
	return s.PutSetting(ctx, SettingWatchDirectory, path)
}

// SerialConfig returns the persisted serial configuration, falling back
// to defaults when unset or unreadable.
func (s *Store) SerialConfig(ctx context.Context) (models.SerialConfig, error) {
	raw, ok, err := s.GetSetting(ctx, SettingSerialConfig)
	if err != nil {
		return models.SerialConfig{}, err
	}
	if !ok {
		return models.DefaultSerialConfig(), nil
	}
	var cfg models.SerialConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return models.SerialConfig{}, apperrors.Wrap(apperrors.Storage, err, "decode serial config")
	}
	return cfg, nil
}

// SetSerialConfig persists the serial configuration as JSON.
func (s *Store) SetSerialConfig(ctx context.Context, cfg models.SerialConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, err, "encode serial config")
	}
	return s.PutSetting(ctx, SettingSerialConfig, string(raw))
}

// SourcePreference returns the persisted telemetry source preference,
// defaulting to auto.
func (s *Store) SourcePreference(ctx context.Context) (string, error) {
	v, ok, err := s.GetSetting(ctx, SettingSourcePreference)
	if err != nil {
		return "", err
	}
	if !ok {
		return models.PreferenceAuto, nil
	}
	return v, nil
}

// SetSourcePreference persists the telemetry source preference.
func (s *Store) SetSourcePreference(ctx context.Context, pref string) error {
	return s.PutSetting(ctx, SettingSourcePreference, pref)
}

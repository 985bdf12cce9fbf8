// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// Migration is one versioned schema change, applied exactly once and
// recorded in schema_migrations.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
	AppliedAt   time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaInitial = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	PRIMARY KEY (user_id, role)
);

CREATE TABLE IF NOT EXISTS form_values (
	role TEXT NOT NULL,
	field_name TEXT NOT NULL,
	value TEXT,
	updated_at TIMESTAMP NOT NULL,
	updated_by INTEGER REFERENCES users(id) ON DELETE SET NULL,
	previous_value TEXT,
	PRIMARY KEY (role, field_name)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	form_name TEXT NOT NULL,
	field_name TEXT NOT NULL,
	old_value TEXT,
	new_value TEXT,
	changed_at TIMESTAMP NOT NULL,
	changed_by INTEGER REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_changed_at ON audit_log(changed_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS ldx_files (
	file_name TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	modified_at TIMESTAMP NOT NULL,
	content_hash TEXT NOT NULL,
	first_seen_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS injection_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name TEXT NOT NULL REFERENCES ldx_files(file_name) ON DELETE CASCADE,
	field_id TEXT NOT NULL,
	value TEXT NOT NULL,
	was_update INTEGER NOT NULL,
	injected_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_injection_file ON injection_log(file_name);

CREATE TABLE IF NOT EXISTS sensors (
	sensor_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	min_value REAL NOT NULL,
	max_value REAL NOT NULL,
	group_name TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_prefs (
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (user_id, key)
);
`

// getMigrations returns all versioned migrations in order.
// Migrations are append-only once a release has shipped databases.
func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "initial_schema",
			Description: "Users, roles, form values, audit, LDX records, injection log, sensors, settings, prefs",
			SQL:         schemaInitial,
		},
	}
}

// migrate applies all pending migrations.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return apperrors.Wrap(apperrors.Storage, err, "create migrations table")
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range getMigrations() {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.SQL); err != nil {
			return apperrors.Wrap(apperrors.Storage, err, "apply migration "+m.Name)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description); err != nil {
			return apperrors.Wrap(apperrors.Storage, err, "record migration "+m.Name)
		}
		pending++
	}

	if pending > 0 {
		logging.Info().Int("count", pending).Msg("applied database migrations")
	}
	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Storage, err, "query applied migrations")
	}
	defer closeRows(rows)

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.Storage, err, "scan migration row")
		}
		applied[m.Version] = m
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.Storage, err, "iterate migrations")
	}
	return applied, nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.Storage, err, "query schema version")
	}
	return version, nil
}

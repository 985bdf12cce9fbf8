// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package store is the persistence layer: a single SQLite database file
// holding users, form values, the audit log, LDX records, the injection
// log, the sensor catalog, settings, and per-user preferences.
//
// All operations take a context and return apperrors-classified errors.
// Multi-statement logical operations (a form submission, an injection
// batch) run inside one transaction via WithTx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "modernc.org/sqlite"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// SQLite extended result codes we classify. See https://sqlite.org/rescode.html
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
	sqliteConstraintForeignKey = 787
)

// Store wraps the SQLite connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database file and runs migrations.
// The parent directory is created if missing.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.Storage, err, "create data directory")
	}

	dsn := fmt.Sprintf("file:%s?%s", path, url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"foreign_keys(1)",
		},
	}.Encode())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Storage, err, "open database")
	}

	// SQLite serializes writes; a small pool avoids SQLITE_BUSY churn
	// while still letting reads overlap.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, apperrors.Wrap(apperrors.Storage, err, "ping database")
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		closeQuietly(db)
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.Storage, err, "begin transaction")
	}
	defer func() {
		// No-op after commit.
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.Storage, err, "commit transaction")
	}
	return nil
}

// mapError classifies a driver error into an apperrors kind.
// sql.ErrNoRows must be handled by callers that can name the entity;
// this fallback labels it a bare NotFound.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.E(apperrors.NotFound, "not found")
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return apperrors.Wrap(apperrors.Conflict, err, "already exists")
		case sqliteConstraintForeignKey:
			return apperrors.Wrap(apperrors.Conflict, err, "referenced row missing")
		}
	}

	return apperrors.Wrap(apperrors.Storage, err, op)
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close database")
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("failed to close rows")
	}
}

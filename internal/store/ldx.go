// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/models"
)

// IsLdxProcessed reports whether a file with this exact content hash has
// already been injected. A row with a different hash means the file
// changed on disk and must be reprocessed.
func (s *Store) IsLdxProcessed(ctx context.Context, fileName, contentHash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM ldx_files WHERE file_name = ?`, fileName).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err, "query ldx file")
	}
	return stored == contentHash, nil
}

// RecordLdxFile marks a file processed with its post-injection hash and
// replaces the file's injection log entries in the same transaction.
// Returns false without writing when the identical (name, hash) pair is
// already recorded.
func (s *Store) RecordLdxFile(ctx context.Context, rec models.LdxFileRecord, rows []models.InjectionRow) (bool, error) {
	inserted := false
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var stored string
		err := tx.QueryRowContext(ctx,
			`SELECT content_hash FROM ldx_files WHERE file_name = ?`, rec.FileName).Scan(&stored)
		exists := true
		if errors.Is(err, sql.ErrNoRows) {
			exists = false
			err = nil
		}
		if err != nil {
			return mapError(err, "query ldx file")
		}
		if exists && stored == rec.ContentHash {
			return nil
		}

		if exists {
			if _, err := tx.ExecContext(ctx,
				`UPDATE ldx_files SET size = ?, modified_at = ?, content_hash = ? WHERE file_name = ?`,
				rec.Size, rec.ModifiedAt, rec.ContentHash, rec.FileName); err != nil {
				return mapError(err, "update ldx file")
			}
			// A reprocessed file supersedes its earlier injection rows.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM injection_log WHERE file_name = ?`, rec.FileName); err != nil {
				return mapError(err, "clear injection log")
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ldx_files (file_name, size, modified_at, content_hash, first_seen_at) VALUES (?, ?, ?, ?, ?)`,
				rec.FileName, rec.Size, rec.ModifiedAt, rec.ContentHash, rec.FirstSeenAt); err != nil {
				return mapError(err, "insert ldx file")
			}
		}

		now := time.Now().UTC()
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO injection_log (file_name, field_id, value, was_update, injected_at) VALUES (?, ?, ?, ?, ?)`,
				rec.FileName, r.FieldID, r.Value, r.WasUpdate, now); err != nil {
				return mapError(err, "insert injection entry")
			}
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// ListLdxRecords returns all processed file records, newest first.
func (s *Store) ListLdxRecords(ctx context.Context) ([]models.LdxFileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, size, modified_at, content_hash, first_seen_at FROM ldx_files ORDER BY first_seen_at DESC, file_name`)
	if err != nil {
		return nil, mapError(err, "query ldx files")
	}
	defer closeRows(rows)

	out := []models.LdxFileRecord{}
	for rows.Next() {
		var r models.LdxFileRecord
		if err := rows.Scan(&r.FileName, &r.Size, &r.ModifiedAt, &r.ContentHash, &r.FirstSeenAt); err != nil {
			return nil, mapError(err, "scan ldx file")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLdxRecord returns one processed file record, or nil when unseen.
func (s *Store) GetLdxRecord(ctx context.Context, fileName string) (*models.LdxFileRecord, error) {
	var r models.LdxFileRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT file_name, size, modified_at, content_hash, first_seen_at FROM ldx_files WHERE file_name = ?`,
		fileName).Scan(&r.FileName, &r.Size, &r.ModifiedAt, &r.ContentHash, &r.FirstSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "query ldx file")
	}
	return &r, nil
}

// ListInjections returns the injection log for one file, oldest first.
func (s *Store) ListInjections(ctx context.Context, fileName string) ([]models.InjectionLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, field_id, value, was_update, injected_at FROM injection_log WHERE file_name = ? ORDER BY id`,
		fileName)
	if err != nil {
		return nil, mapError(err, "query injection log")
	}
	defer closeRows(rows)

	out := []models.InjectionLogEntry{}
	for rows.Next() {
		var e models.InjectionLogEntry
		var wasUpdate int
		if err := rows.Scan(&e.ID, &e.FileName, &e.FieldID, &e.Value, &wasUpdate, &e.InjectedAt); err != nil {
			return nil, mapError(err, "scan injection entry")
		}
		e.WasUpdate = wasUpdate != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// LdxStats aggregates the injection log per processed file.
func (s *Store) LdxStats(ctx context.Context) ([]models.LdxFileStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.file_name, COUNT(i.id), MAX(i.injected_at)
		FROM ldx_files f
		LEFT JOIN injection_log i ON i.file_name = f.file_name
		GROUP BY f.file_name
		ORDER BY f.file_name`)
	if err != nil {
		return nil, mapError(err, "query ldx stats")
	}
	defer closeRows(rows)

	out := []models.LdxFileStats{}
	for rows.Next() {
		var s models.LdxFileStats
		var last sql.NullString
		if err := rows.Scan(&s.FileName, &s.Injections, &last); err != nil {
			return nil, mapError(err, "scan ldx stats")
		}
		if last.Valid {
			t, err := parseStoredTime(last.String)
			if err != nil {
				return nil, mapError(err, "scan ldx stats")
			}
			s.LastInjectedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MaxFirstSeenAt returns the newest first_seen_at across processed
// files, seeding the watcher's freshness mark after a restart. Zero time
// when nothing has been processed.
func (s *Store) MaxFirstSeenAt(ctx context.Context) (time.Time, error) {
	var t sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(first_seen_at) FROM ldx_files`).Scan(&t)
	if err != nil {
		return time.Time{}, mapError(err, "query max first_seen_at")
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	parsed, err := parseStoredTime(t.String)
	if err != nil {
		return time.Time{}, mapError(err, "query max first_seen_at")
	}
	return parsed, nil
}

// storedTimeLayouts are the formats the SQLite driver writes time.Time
// values in. Expression results such as MAX() lose the column's
// declared type, so the driver hands them back as raw strings that must
// be parsed here.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

func parseStoredTime(s string) (time.Time, error) {
	var err error
	for _, layout := range storedTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

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

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// UpsertFormValue writes one field inside the caller's transaction.
//
// A value counts as changed when the stored value differs from the new
// one after string comparison. On change, previous_value receives the
// pre-upsert value and an audit row is appended; an unchanged write
// leaves the row (and previous_value) untouched. Returns the old value,
// the resulting previous_value, and whether anything changed.
func (s *Store) UpsertFormValue(ctx context.Context, tx *sql.Tx, role, formName, field string, value *string, userID *int64) (old, prev *string, changed bool, err error) {
	var curValue, curPrev sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT value, previous_value FROM form_values WHERE role = ? AND field_name = ?`,
		role, field).Scan(&curValue, &curPrev)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
		err = nil
	}
	if err != nil {
		return nil, nil, false, mapError(err, "query form value")
	}

	old = nullToPtr(curValue)
	prev = nullToPtr(curPrev)

	// A missing row holds null, so a null write onto a missing row is
	// a no-op: no row, no audit entry.
	if exists {
		changed = !ptrEqual(old, value)
	} else {
		changed = value != nil
	}
	if !changed {
		return old, prev, false, nil
	}

	now := time.Now().UTC()
	if exists {
		// previous_value advances only on a real change.
		if _, err := tx.ExecContext(ctx,
			`UPDATE form_values SET value = ?, updated_at = ?, updated_by = ?, previous_value = ? WHERE role = ? AND field_name = ?`,
			ptrToNull(value), now, ptrToInt(userID), curValue, role, field); err != nil {
			return nil, nil, false, mapError(err, "update form value")
		}
		prev = old
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO form_values (role, field_name, value, updated_at, updated_by, previous_value) VALUES (?, ?, ?, ?, ?, NULL)`,
			role, field, ptrToNull(value), now, ptrToInt(userID)); err != nil {
			return nil, nil, false, mapError(err, "insert form value")
		}
		prev = nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (form_name, field_name, old_value, new_value, changed_at, changed_by) VALUES (?, ?, ?, ?, ?, ?)`,
		formName, field, ptrToNull(old), ptrToNull(value), now, ptrToInt(userID)); err != nil {
		return nil, nil, false, mapError(err, "append audit entry")
	}
	metrics.AuditEntriesWritten.Inc()

	return old, prev, true, nil
}

// ListValues returns all stored values for a role, keyed by field name.
func (s *Store) ListValues(ctx context.Context, role string) (map[string]models.FormValueState, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_name, value, updated_at, updated_by, previous_value FROM form_values WHERE role = ?`, role)
	metrics.RecordStoreQuery("list_values", time.Since(start), err)
	if err != nil {
		return nil, mapError(err, "query form values")
	}
	defer closeRows(rows)

	out := make(map[string]models.FormValueState)
	for rows.Next() {
		var field string
		var value, prev sql.NullString
		var updatedBy sql.NullInt64
		var updatedAt time.Time
		if err := rows.Scan(&field, &value, &updatedAt, &updatedBy, &prev); err != nil {
			return nil, mapError(err, "scan form value")
		}
		out[field] = models.FormValueState{
			Value:         nullToPtr(value),
			UpdatedAt:     updatedAt,
			UpdatedBy:     nullToInt(updatedBy),
			PreviousValue: nullToPtr(prev),
		}
	}
	return out, rows.Err()
}

// GetFormValue returns one stored value, or NotFound.
func (s *Store) GetFormValue(ctx context.Context, role, field string) (*models.FormValueState, error) {
	var value, prev sql.NullString
	var updatedBy sql.NullInt64
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at, updated_by, previous_value FROM form_values WHERE role = ? AND field_name = ?`,
		role, field).Scan(&value, &updatedAt, &updatedBy, &prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(apperrors.NotFound, "value not found")
	}
	if err != nil {
		return nil, mapError(err, "query form value")
	}
	return &models.FormValueState{
		Value:         nullToPtr(value),
		UpdatedAt:     updatedAt,
		UpdatedBy:     nullToInt(updatedBy),
		PreviousValue: nullToPtr(prev),
	}, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func ptrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullToInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func ptrToInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

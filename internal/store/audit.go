// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// ListAudit returns one page of the audit log, newest first, with the
// changer's username joined in. Entries whose user was deleted keep a
// NULL changed_by and no name. Ordering ties on changed_at break by id
// so pagination is stable.
func (s *Store) ListAudit(ctx context.Context, limit, offset int) (*models.AuditPage, error) {
	start := time.Now()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, mapError(err, "count audit entries")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.form_name, a.field_name, a.old_value, a.new_value,
		       a.changed_at, a.changed_by, u.username
		FROM audit_log a
		LEFT JOIN users u ON u.id = a.changed_by
		ORDER BY a.changed_at DESC, a.id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	metrics.RecordStoreQuery("list_audit", time.Since(start), err)
	if err != nil {
		return nil, mapError(err, "query audit log")
	}
	defer closeRows(rows)

	items := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var oldVal, newVal, name sql.NullString
		var changedBy sql.NullInt64
		if err := rows.Scan(&e.ID, &e.FormName, &e.FieldName, &oldVal, &newVal,
			&e.ChangedAt, &changedBy, &name); err != nil {
			return nil, mapError(err, "scan audit entry")
		}
		e.OldValue = nullToPtr(oldVal)
		e.NewValue = nullToPtr(newVal)
		e.ChangedBy = nullToInt(changedBy)
		e.ChangedByName = nullToPtr(name)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate audit log")
	}

	return &models.AuditPage{Items: items, Total: total}, nil
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package models

import "time"

// AuditEntry records one field-level change: appended exactly once per
// field whose submitted value differed from the stored one.
type AuditEntry struct {
	ID            int64     `json:"id"`
	FormName      string    `json:"form_name"`
	FieldName     string    `json:"field_name"`
	OldValue      *string   `json:"old_value"`
	NewValue      *string   `json:"new_value"`
	ChangedAt     time.Time `json:"changed_at"`
	ChangedBy     *int64    `json:"changed_by,omitempty"`
	ChangedByName *string   `json:"changed_by_name,omitempty"`
}

// AuditPage is one page of the audit log, newest first.
type AuditPage struct {
	Items []AuditEntry `json:"items"`
	Total int          `json:"total"`
}

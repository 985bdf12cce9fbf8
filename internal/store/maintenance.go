// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"database/sql"

	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// ClearRuntimeData wipes form values, the audit log, processed LDX
// records, and the injection log in one transaction. Users, the sensor
// catalog, settings, and user preferences are preserved.
func (s *Store) ClearRuntimeData(ctx context.Context) error {
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"injection_log", "ldx_files", "audit_log", "form_values"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return mapError(err, "clear "+table)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Warn().Msg("runtime data cleared")
	return nil
}

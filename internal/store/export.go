// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"os"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// ExportTo writes a consistent snapshot of the database to destPath
// using VACUUM INTO. The destination must not exist; a stale file from
// an aborted earlier export is removed first.
func (s *Store) ExportTo(ctx context.Context, destPath string) error {
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.Storage, err, "remove stale export")
	}

	start := time.Now()
	_, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, destPath)
	if err != nil {
		return apperrors.Wrap(apperrors.Storage, err, "vacuum into export")
	}

	logging.Info().
		Str("dest", destPath).
		Dur("elapsed", time.Since(start)).
		Msg("database exported")
	return nil
}

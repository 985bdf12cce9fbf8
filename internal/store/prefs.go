// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
)

// UserPrefs returns all preferences for a user, keyed by name.
func (s *Store) UserPrefs(ctx context.Context, userID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM user_prefs WHERE user_id = ?`, userID)
	if err != nil {
		return nil, mapError(err, "query user prefs")
	}
	defer closeRows(rows)

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, mapError(err, "scan user pref")
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutUserPref upserts one preference for a user.
func (s *Store) PutUserPref(ctx context.Context, userID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_prefs (user_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value`,
		userID, key, value)
	if err != nil {
		return mapError(err, "put user pref")
	}
	return nil
}

// DeleteUserPref removes one preference; missing keys are a no-op.
func (s *Store) DeleteUserPref(ctx context.Context, userID int64, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_prefs WHERE user_id = ? AND key = ?`, userID, key); err != nil {
		return mapError(err, "delete user pref")
	}
	return nil
}

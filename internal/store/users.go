// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// CreateUser inserts a user with its roles in one transaction.
// Role invariants (admin has none, non-admin 1..2) are enforced by the
// caller; the store only guards username uniqueness.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool, roles []string) (*models.User, error) {
	start := time.Now()
	var user *models.User
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)`,
			username, passwordHash, isAdmin)
		if err != nil {
			if apperrors.IsKind(mapError(err, ""), apperrors.Conflict) {
				return apperrors.Ef(apperrors.Conflict, "username '%s' already exists", username)
			}
			return mapError(err, "insert user")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return mapError(err, "user id")
		}
		for _, role := range roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, id, role); err != nil {
				return mapError(err, "insert user role")
			}
		}
		user = &models.User{
			ID:       id,
			Username: username,
			IsAdmin:  isAdmin,
			Roles:    normalizeRoles(roles),
		}
		return nil
	})
	metrics.RecordStoreQuery("create_user", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername fetches a user with roles, or NotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?`, username)
}

// GetUserByID fetches a user with roles, or NotFound.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, is_admin, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	var isAdmin int
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &isAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(apperrors.NotFound, "user not found")
	}
	if err != nil {
		return nil, mapError(err, "query user")
	}
	u.IsAdmin = isAdmin != 0

	roles, err := s.userRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (s *Store) userRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, mapError(err, "query user roles")
	}
	defer closeRows(rows)

	roles := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, mapError(err, "scan role")
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// ListUsers returns all users with their roles, ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, mapError(err, "query users")
	}
	defer closeRows(rows)

	users := []models.User{}
	byID := map[int64]int{}
	for rows.Next() {
		var u models.User
		var isAdmin int
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &isAdmin, &u.CreatedAt); err != nil {
			return nil, mapError(err, "scan user")
		}
		u.IsAdmin = isAdmin != 0
		u.Roles = []string{}
		byID[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate users")
	}

	roleRows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role FROM user_roles ORDER BY user_id, role`)
	if err != nil {
		return nil, mapError(err, "query roles")
	}
	defer closeRows(roleRows)

	for roleRows.Next() {
		var userID int64
		var role string
		if err := roleRows.Scan(&userID, &role); err != nil {
			return nil, mapError(err, "scan role")
		}
		if idx, ok := byID[userID]; ok {
			users[idx].Roles = append(users[idx].Roles, role)
		}
	}
	return users, roleRows.Err()
}

// DeleteUser removes a user. Deleting the last remaining admin is
// refused with Conflict so the system can never lock itself out.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var isAdmin int
		err := tx.QueryRowContext(ctx,
			`SELECT is_admin FROM users WHERE id = ?`, id).Scan(&isAdmin)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.E(apperrors.NotFound, "user not found")
		}
		if err != nil {
			return mapError(err, "query user")
		}

		if isAdmin != 0 {
			var admins int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM users WHERE is_admin = 1`).Scan(&admins); err != nil {
				return mapError(err, "count admins")
			}
			if admins <= 1 {
				return apperrors.E(apperrors.Conflict, "cannot delete the last admin")
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return mapError(err, "delete user")
		}
		return nil
	})
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return mapError(err, "update password")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "rows affected")
	}
	if n == 0 {
		return apperrors.E(apperrors.NotFound, "user not found")
	}
	return nil
}

// UpdateRoles replaces a user's admin flag and role set atomically.
func (s *Store) UpdateRoles(ctx context.Context, id int64, isAdmin bool, roles []string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, id)
		if err != nil {
			return mapError(err, "update user")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return mapError(err, "rows affected")
		}
		if n == 0 {
			return apperrors.E(apperrors.NotFound, "user not found")
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_roles WHERE user_id = ?`, id); err != nil {
			return mapError(err, "clear roles")
		}
		for _, role := range roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, id, role); err != nil {
				return mapError(err, "insert role")
			}
		}
		return nil
	})
}

// CountUsers returns the total user count.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, mapError(err, "count users")
	}
	return n, nil
}

// CountAdmins returns the number of admin users.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE is_admin = 1`).Scan(&n); err != nil {
		return 0, mapError(err, "count admins")
	}
	return n, nil
}

func normalizeRoles(roles []string) []string {
	out := append([]string{}, roles...)
	sort.Strings(out)
	return out
}

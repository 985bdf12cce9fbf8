// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package models defines the data structures shared across Pitwall:
// persistent entities (users, sensors, form values, audit, LDX records)
// and the wire shapes the REST and WebSocket surfaces expose.
package models

import "time"

// User is a dashboard account. Admins carry no subteam roles; regular
// users carry one or two. Role membership gates form access.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole reports whether the user holds the given subteam role.
// Admins implicitly hold every role.
func (u *User) HasRole(role string) bool {
	if u.IsAdmin {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CreateUserRequest is the admin payload to create an account.
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,max=64"`
	Password string   `json:"password" validate:"required"`
	IsAdmin  bool     `json:"is_admin"`
	Roles    []string `json:"roles" validate:"max=2"`
}

// UpdatePasswordRequest is the admin payload to reset an account password.
type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// UpdateRolesRequest is the admin payload to change an account's roles
// and admin flag. The admin/role invariant is enforced server-side.
type UpdateRolesRequest struct {
	IsAdmin bool     `json:"is_admin"`
	Roles   []string `json:"roles" validate:"max=2"`
}

// LoginResponse is the successful login payload.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

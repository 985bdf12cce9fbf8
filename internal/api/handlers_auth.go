// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"net/http"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/auth"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// handleLogin authenticates form-encoded credentials and issues a JWT.
// Unknown accounts and wrong passwords fail with distinct messages.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := auth.ClientIP(r)
	if !s.limiter.Allow(ip) {
		metrics.RecordLogin("rate_limited")
		respondDetail(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	if err := r.ParseForm(); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		respondDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		if apperrors.IsKind(err, apperrors.NotFound) {
			metrics.RecordLogin("unknown_user")
			respondDetail(w, http.StatusUnauthorized, "Account not found")
			return
		}
		respondError(w, r, err)
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		metrics.RecordLogin("bad_password")
		respondDetail(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		respondError(w, r, apperrors.Wrap(apperrors.Internal, err, "token generation failed"))
		return
	}

	metrics.RecordLogin("success")
	logging.Ctx(r.Context()).Info().
		Str("username", user.Username).
		Bool("is_admin", user.IsAdmin).
		Msg("login succeeded")
	respondJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// handleMe returns the caller's account as resolved from the store.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}

// handleRoles returns the closed subteam role set.
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"roles": models.AllRoles()})
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package api is the HTTP and WebSocket surface: the chi router, the
// route handlers, and the error-to-status mapping.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/auth"
	"github.com/pitwall-fsae/pitwall/internal/authz"
	"github.com/pitwall-fsae/pitwall/internal/config"
	"github.com/pitwall-fsae/pitwall/internal/forms"
	"github.com/pitwall-fsae/pitwall/internal/ldx"
	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/store"
	"github.com/pitwall-fsae/pitwall/internal/telemetry"
)

// Server bundles the dependencies of the HTTP surface.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	jwt      *auth.JWTManager
	authMW   *auth.Middleware
	limiter  *auth.LoginRateLimiter
	enforcer *authz.Enforcer
	registry *forms.Registry
	values   *forms.ValueService
	watcher  *ldx.Watcher
	hub      *telemetry.Hub
	manager  *telemetry.Manager
	serial   *telemetry.SerialReader
	catalog  *telemetry.Catalog
}

// Deps lists everything the server needs; all fields are required
// except Limiter, which defaults to burst 20 refilling every 3 s
// (20/min steady state).
type Deps struct {
	Config   *config.Config
	Store    *store.Store
	JWT      *auth.JWTManager
	Enforcer *authz.Enforcer
	Registry *forms.Registry
	Values   *forms.ValueService
	Watcher  *ldx.Watcher
	Hub      *telemetry.Hub
	Manager  *telemetry.Manager
	Serial   *telemetry.SerialReader
	Catalog  *telemetry.Catalog
	Limiter  *auth.LoginRateLimiter
}

// NewServer wires the handler set.
func NewServer(d Deps) *Server {
	limiter := d.Limiter
	if limiter == nil {
		limiter = auth.NewLoginRateLimiter(20, 3*time.Second)
	}
	return &Server{
		cfg:      d.Config,
		store:    d.Store,
		jwt:      d.JWT,
		authMW:   auth.NewMiddleware(d.JWT),
		limiter:  limiter,
		enforcer: d.Enforcer,
		registry: d.Registry,
		values:   d.Values,
		watcher:  d.Watcher,
		hub:      d.Hub,
		manager:  d.Manager,
		serial:   d.Serial,
		catalog:  d.Catalog,
	}
}

type userContextKey struct{}

// withUser resolves the token's user against the store so that role
// changes and deletions take effect immediately, not at token expiry.
// Runs inside auth.Authenticate.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			respondDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if apperrors.IsKind(err, apperrors.NotFound) {
				respondDetail(w, http.StatusUnauthorized, "User no longer exists")
				return
			}
			respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the store user resolved by withUser.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey{}).(*models.User)
	return user
}

// requireAdmin gates the admin subtree on the store user resolved by
// withUser, not the token claim, so a demotion takes effect on the
// next request rather than at token expiry.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil {
			respondDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !user.IsAdmin {
			respondDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

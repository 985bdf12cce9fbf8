// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitwall-fsae/pitwall/internal/middleware"
)

// requestDeadline bounds every non-WebSocket request.
const requestDeadline = 30 * time.Second

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// WebSocket outside the timeout middleware: sessions are long-lived.
	r.Get("/ws/telemetry", s.handleTelemetryWS)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestDeadline))

		r.Route("/api/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(20, time.Minute)).
				Post("/login", s.handleLogin)
			r.With(s.authMW.Authenticate, s.withUser).
				Get("/me", s.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(300, time.Minute))
			r.Use(s.authMW.Authenticate, s.withUser)

			r.Get("/api/roles", s.handleRoles)

			r.Route("/api/forms", func(r chi.Router) {
				r.Get("/", s.handleListForms)
				r.Get("/{role}", s.handleGetForm)
				r.Get("/{role}/values", s.handleFormValues)
				r.Post("/{role}/submit", s.handleFormSubmit)
			})

			r.Route("/api/telemetry", func(r chi.Router) {
				r.Get("/channels", s.handleChannels)
				r.Get("/source", s.handleSourceStatus)
				r.Get("/preferences", s.handleGetPreferences)
				r.Put("/preferences", s.handlePutPreferences)
			})

			r.Route("/api/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Get("/users", s.handleListUsers)
				r.Post("/users", s.handleCreateUser)
				r.Delete("/users/{id}", s.handleDeleteUser)
				r.Put("/users/{id}/password", s.handleUpdatePassword)
				r.Put("/users/{id}/roles", s.handleUpdateRoles)

				r.Get("/audit", s.handleAudit)

				r.Get("/watch-directory", s.handleGetWatchDirectory)
				r.Put("/watch-directory", s.handlePutWatchDirectory)
				r.Get("/ldx-files", s.handleLdxFiles)
				r.Get("/ldx-files/{name}/injections", s.handleLdxInjections)
				r.Get("/ldx-stats", s.handleLdxStats)
				r.Post("/export-db", s.handleExportDB)
				r.Post("/clear-data", s.handleClearData)
				r.Post("/forms/reload", s.handleFormsReload)

				r.Get("/sensors", s.handleListSensors)
				r.Post("/sensors", s.handleCreateSensor)
				r.Put("/sensors/{id}", s.handleUpdateSensor)
				r.Delete("/sensors/{id}", s.handleDeleteSensor)

				r.Get("/serial/config", s.handleGetSerialConfig)
				r.Put("/serial/config", s.handlePutSerialConfig)
				r.Put("/serial/source", s.handlePutSource)
				r.Post("/serial/restart", s.handleSerialRestart)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

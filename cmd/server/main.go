// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package main is the entry point for the Pitwall server.
//
// Pitwall is a self-hosted dashboard server for a Formula SAE team: it
// serves role-scoped setup forms, live telemetry over WebSocket, and
// ingests MoTeC LDX lap files dropped into a watched directory.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Store: SQLite database with embedded migrations
//  3. Bootstrap: admin account and sensor catalog seeding on first boot
//  4. Forms: YAML descriptor registry and Casbin policy rebuild
//  5. Telemetry: frame hub, simulator, serial reader, source manager
//  6. Supervisor: Suture tree running every long-lived loop
//  7. HTTP server: chi router with REST API and /ws/telemetry
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config.yaml, built-in
// defaults.
//
// Required settings:
//   - JWT_SECRET: 16+ character secret for token signing
//
// First-boot settings (consulted only when the user table is empty):
//   - ADMIN_USERNAME: bootstrap admin username
//   - ADMIN_PASSWORD: bootstrap admin password (10+ characters)
//
// Optional:
//   - LDX_WATCH_DIR: initial watch directory for LDX lap files
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor tree cancels every service, the HTTP server drains
// in-flight requests, and services that fail to stop within the
// timeout are logged.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pitwall-fsae/pitwall/internal/api"
	"github.com/pitwall-fsae/pitwall/internal/auth"
	"github.com/pitwall-fsae/pitwall/internal/authz"
	"github.com/pitwall-fsae/pitwall/internal/config"
	"github.com/pitwall-fsae/pitwall/internal/forms"
	"github.com/pitwall-fsae/pitwall/internal/ldx"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/store"
	"github.com/pitwall-fsae/pitwall/internal/supervisor"
	"github.com/pitwall-fsae/pitwall/internal/telemetry"
)

func main() {
	os.Exit(run())
}

//nolint:gocyclo // sequential boot steps
func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path()).
		Str("forms_dir", cfg.Forms.Dir).
		Msg("Configuration loaded")

	st, err := store.New(cfg.Database.Path())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open store")
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Msg("Store close failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap(ctx, cfg, st); err != nil {
		logging.Error().Err(err).Msg("First-boot setup failed")
		return 1
	}

	registry, err := forms.NewRegistry(cfg.Forms.Dir)
	if err != nil {
		logging.Error().Err(err).Str("dir", cfg.Forms.Dir).Msg("Failed to load form descriptors")
		return 1
	}

	enforcer, err := authz.New(st)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build authorizer")
		return 1
	}
	if err := enforcer.Rebuild(ctx, registry.Names()); err != nil {
		logging.Error().Err(err).Msg("Failed to build authorization policy")
		return 1
	}

	jwtMgr, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize JWT manager")
		return 1
	}

	watcher, err := ldx.NewWatcher(ctx, st, registry, cfg.LDX.PollInterval)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create LDX watcher")
		return 1
	}

	serialCfg, err := st.SerialConfig(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load serial config, using defaults")
		serialCfg = models.DefaultSerialConfig()
	}
	preference, err := st.SourcePreference(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load source preference, using auto")
		preference = models.PreferenceAuto
	}

	hub := telemetry.NewHub()
	catalog := telemetry.NewCatalog(st)
	serial := telemetry.NewSerialReader(serialCfg, nil)
	manager := telemetry.NewManager(hub, catalog, serial, preference)
	serial.SetSink(manager)
	simulator := telemetry.NewSimulator(catalog, manager)

	srv := api.NewServer(api.Deps{
		Config:   cfg,
		Store:    st,
		JWT:      jwtMgr,
		Enforcer: enforcer,
		Registry: registry,
		Values:   forms.NewValueService(st, registry),
		Watcher:  watcher,
		Hub:      hub,
		Manager:  manager,
		Serial:   serial,
		Catalog:  catalog,
	})

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build supervisor tree")
		return 1
	}
	tree.AddDataService(watcher)
	tree.AddTelemetryService(hub)
	tree.AddTelemetryService(simulator)
	tree.AddTelemetryService(serial)
	tree.AddTelemetryService(manager)
	tree.AddAPIService(supervisor.NewHTTPService(cfg.Server.Addr(), srv.Router()))

	errCh := tree.ServeBackground(ctx)
	logging.Info().Msg("Pitwall started")

	err = <-errCh
	stop()

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil {
		for _, unstopped := range report {
			logging.Warn().Str("service", unstopped.Name).Msg("Service did not stop in time")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree terminated with error")
		return 2
	}
	logging.Info().Msg("Pitwall stopped")
	return 0
}

// bootstrap performs the first-boot setup: the admin account when the
// user table is empty, the default sensor catalog when no sensors
// exist, and the initial watch directory when none is persisted.
func bootstrap(ctx context.Context, cfg *config.Config, st *store.Store) error {
	count, err := st.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		if cfg.Auth.AdminUsername == "" || cfg.Auth.AdminPassword == "" {
			logging.Warn().Msg("User table is empty and no ADMIN_USERNAME/ADMIN_PASSWORD set; no accounts exist")
		} else {
			hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
			if err != nil {
				return err
			}
			if _, err := st.CreateUser(ctx, cfg.Auth.AdminUsername, hash, true, nil); err != nil {
				return err
			}
			logging.Info().Str("username", cfg.Auth.AdminUsername).Msg("Bootstrap admin created")
		}
	}

	seeded, err := st.SeedSensors(ctx, models.DefaultSensors())
	if err != nil {
		return err
	}
	if seeded > 0 {
		logging.Info().Int("count", seeded).Msg("Sensor catalog seeded")
	}

	if cfg.LDX.WatchDir != "" {
		if _, ok, err := st.GetSetting(ctx, store.SettingWatchDirectory); err != nil {
			return err
		} else if !ok {
			if err := st.SetWatchDirectory(ctx, cfg.LDX.WatchDir); err != nil {
				return err
			}
			logging.Info().Str("dir", cfg.LDX.WatchDir).Msg("Watch directory seeded from environment")
		}
	}

	return nil
}

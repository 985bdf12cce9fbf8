// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/pitwall-fsae/pitwall/internal/models"
)

func TestUserAdmin(t *testing.T) {
	f := newFixture(t)

	t.Run("non-admin forbidden", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/users", f.userToken, nil)
		wantStatus(t, resp, http.StatusForbidden)
	})

	t.Run("list", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/users", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var users []models.User
		decodeBody(t, resp, &users)
		if len(users) != 2 {
			t.Errorf("users = %d", len(users))
		}
	})

	t.Run("create", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/users", f.adminToken,
			models.CreateUserRequest{
				Username: "suspension-lead",
				Password: "validPass9",
				Roles:    []string{models.RoleSuspension, models.RoleChasis},
			})
		wantStatus(t, resp, http.StatusCreated)
		var user models.User
		decodeBody(t, resp, &user)
		if len(user.Roles) != 2 {
			t.Errorf("roles = %v", user.Roles)
		}
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/users", f.adminToken,
			models.CreateUserRequest{
				Username: "eng",
				Password: "validPass9",
				Roles:    []string{models.RoleAero},
			})
		wantStatus(t, resp, http.StatusConflict)
	})

	t.Run("role invariants", func(t *testing.T) {
		cases := []struct {
			name string
			req  models.CreateUserRequest
		}{
			{"admin with roles", models.CreateUserRequest{
				Username: "x1", Password: "validPass9", IsAdmin: true,
				Roles: []string{models.RoleAero}}},
			{"no roles", models.CreateUserRequest{
				Username: "x2", Password: "validPass9"}},
			{"unknown role", models.CreateUserRequest{
				Username: "x3", Password: "validPass9", Roles: []string{"engine"}}},
			{"duplicate role", models.CreateUserRequest{
				Username: "x4", Password: "validPass9",
				Roles: []string{models.RoleAero, models.RoleAero}}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				resp := f.do(t, http.MethodPost, "/api/admin/users", f.adminToken, tc.req)
				wantStatus(t, resp, http.StatusBadRequest)
			})
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/users", f.adminToken,
			models.CreateUserRequest{
				Username: "weak", Password: "1234567890",
				Roles: []string{models.RoleAero}})
		wantStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("last admin protected", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete,
			fmt.Sprintf("/api/admin/users/%d", f.admin.ID), f.adminToken, nil)
		wantStatus(t, resp, http.StatusConflict)

		resp = f.do(t, http.MethodPut,
			fmt.Sprintf("/api/admin/users/%d/roles", f.admin.ID), f.adminToken,
			models.UpdateRolesRequest{IsAdmin: false, Roles: []string{models.RoleAero}})
		wantStatus(t, resp, http.StatusConflict)
	})

	t.Run("demotion revokes admin access immediately", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/users", f.adminToken,
			models.CreateUserRequest{
				Username: "second-admin", Password: "validPass9", IsAdmin: true})
		wantStatus(t, resp, http.StatusCreated)
		var second models.User
		decodeBody(t, resp, &second)

		// Token minted while the account was still an admin.
		token, err := f.srv.jwt.GenerateToken(&second)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		resp = f.do(t, http.MethodGet, "/api/admin/users", token, nil)
		wantStatus(t, resp, http.StatusOK)

		resp = f.do(t, http.MethodPut,
			fmt.Sprintf("/api/admin/users/%d/roles", second.ID), f.adminToken,
			models.UpdateRolesRequest{IsAdmin: false, Roles: []string{models.RoleDrivetrain}})
		wantStatus(t, resp, http.StatusOK)

		// The stale admin claim inside the token must not matter.
		resp = f.do(t, http.MethodGet, "/api/admin/users", token, nil)
		wantStatus(t, resp, http.StatusForbidden)
	})

	t.Run("delete revokes access", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete,
			fmt.Sprintf("/api/admin/users/%d", f.user.ID), f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)

		resp = f.do(t, http.MethodGet, "/api/auth/me", f.userToken, nil)
		wantStatus(t, resp, http.StatusUnauthorized)
	})
}

func TestAuditEndpoint(t *testing.T) {
	f := newFixture(t)

	// Generate some audit entries.
	resp := f.do(t, http.MethodPost, "/api/forms/powertrain/submit", f.userToken,
		models.SubmitRequest{Values: map[string]interface{}{
			"oil_pressure": 4.0,
			"notes":        "session 1",
		}})
	wantStatus(t, resp, http.StatusOK)

	t.Run("default page", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/audit", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var page models.AuditPage
		decodeBody(t, resp, &page)
		if page.Total != 2 || len(page.Items) != 2 {
			t.Errorf("page = total %d items %d", page.Total, len(page.Items))
		}
		if page.Items[0].ChangedByName == nil || *page.Items[0].ChangedByName != "eng" {
			t.Errorf("changed_by_name = %v", page.Items[0].ChangedByName)
		}
	})

	t.Run("limit bounds", func(t *testing.T) {
		for _, q := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1"} {
			resp := f.do(t, http.MethodGet, "/api/admin/audit?"+q, f.adminToken, nil)
			wantStatus(t, resp, http.StatusBadRequest)
		}
	})
}

func TestWatchDirectoryEndpoint(t *testing.T) {
	f := newFixture(t)

	t.Run("unset returns null", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/watch-directory", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var body models.WatchDirectory
		decodeBody(t, resp, &body)
		if body.Path != nil {
			t.Errorf("path = %v", *body.Path)
		}
	})

	t.Run("set valid directory", func(t *testing.T) {
		dir := t.TempDir()
		resp := f.do(t, http.MethodPut, "/api/admin/watch-directory", f.adminToken,
			models.WatchDirectory{Path: &dir})
		wantStatus(t, resp, http.StatusOK)
		var body models.WatchDirectory
		decodeBody(t, resp, &body)
		if body.Path == nil || *body.Path != dir {
			t.Errorf("path = %v", body.Path)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		file := filepath.Join(t.TempDir(), "afile")
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		for _, path := range []string{"/etc", "/etc/pitwall", "/proc/self", missing, file} {
			p := path
			resp := f.do(t, http.MethodPut, "/api/admin/watch-directory", f.adminToken,
				models.WatchDirectory{Path: &p})
			wantStatus(t, resp, http.StatusBadRequest)
		}
	})

	t.Run("clear", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/api/admin/watch-directory", f.adminToken,
			models.WatchDirectory{Path: nil})
		wantStatus(t, resp, http.StatusOK)
	})
}

func TestLdxEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dir := t.TempDir()
	if err := f.store.SetWatchDirectory(ctx, dir); err != nil {
		t.Fatalf("SetWatchDirectory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.ldx"), []byte("<LDXFile/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Run("list files", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/ldx-files", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var files []models.LdxFileInfo
		decodeBody(t, resp, &files)
		if len(files) != 1 || files[0].FileName != "a.ldx" {
			t.Errorf("files = %+v", files)
		}
	})

	t.Run("injections bad name", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/ldx-files/..%2Fa.ldx/injections", f.adminToken, nil)
		if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
		resp.Body.Close()

		resp = f.do(t, http.MethodGet, "/api/admin/ldx-files/notes.txt/injections", f.adminToken, nil)
		wantStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("stats empty", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/ldx-stats", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
	})

	t.Run("export into watch dir", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/export-db", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var body models.ExportResponse
		decodeBody(t, resp, &body)
		if body.Status != "exported" {
			t.Errorf("status = %q", body.Status)
		}
		if _, err := os.Stat(filepath.Join(dir, body.Filename)); err != nil {
			t.Errorf("export file missing: %v", err)
		}
	})

	t.Run("clear data preserves settings", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/clear-data", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)

		got, err := f.store.WatchDirectory(ctx)
		if err != nil || got != dir {
			t.Errorf("watch dir after clear = %q err=%v", got, err)
		}
	})
}

func TestExportWithoutWatchDir(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/admin/export-db", f.adminToken, nil)
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestSensorAdmin(t *testing.T) {
	f := newFixture(t)

	t.Run("list includes seeds", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/sensors", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var sensors []models.Sensor
		decodeBody(t, resp, &sensors)
		if len(sensors) != 15 {
			t.Errorf("sensors = %d", len(sensors))
		}
	})

	newSensor := models.Sensor{
		SensorID: "fuel_pressure",
		Name:     "Fuel Pressure",
		Unit:     "bar",
		MinValue: 0,
		MaxValue: 6,
		Group:    "Performance",
		Enabled:  true,
	}

	t.Run("create", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/sensors", f.adminToken, newSensor)
		wantStatus(t, resp, http.StatusCreated)
	})

	t.Run("duplicate conflicts", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/sensors", f.adminToken, newSensor)
		wantStatus(t, resp, http.StatusConflict)
	})

	t.Run("invalid range", func(t *testing.T) {
		bad := newSensor
		bad.SensorID = "bad_range"
		bad.MaxValue = bad.MinValue
		resp := f.do(t, http.MethodPost, "/api/admin/sensors", f.adminToken, bad)
		wantStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("update", func(t *testing.T) {
		updated := newSensor
		updated.Name = "Fuel Rail Pressure"
		resp := f.do(t, http.MethodPut, "/api/admin/sensors/fuel_pressure", f.adminToken, updated)
		wantStatus(t, resp, http.StatusOK)
	})

	t.Run("update missing", func(t *testing.T) {
		ghost := newSensor
		ghost.SensorID = "ghost"
		resp := f.do(t, http.MethodPut, "/api/admin/sensors/ghost", f.adminToken, ghost)
		wantStatus(t, resp, http.StatusNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/api/admin/sensors/fuel_pressure", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		resp = f.do(t, http.MethodDelete, "/api/admin/sensors/fuel_pressure", f.adminToken, nil)
		wantStatus(t, resp, http.StatusNotFound)
	})
}

func TestSerialEndpoints(t *testing.T) {
	f := newFixture(t)

	t.Run("get defaults", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/admin/serial/config", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var cfg models.SerialConfig
		decodeBody(t, resp, &cfg)
		if cfg.BaudRate != 9600 || cfg.DataFormat != models.FormatAuto {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("put valid config", func(t *testing.T) {
		cfg := models.DefaultSerialConfig()
		cfg.Port = "/dev/ttyUSB0"
		cfg.BaudRate = 115200
		resp := f.do(t, http.MethodPut, "/api/admin/serial/config", f.adminToken, cfg)
		wantStatus(t, resp, http.StatusOK)

		status := f.srv.serial.Status()
		if status.Port != "/dev/ttyUSB0" || status.BaudRate != 115200 {
			t.Errorf("reader status = %+v", status)
		}
	})

	t.Run("put invalid config", func(t *testing.T) {
		cfg := models.DefaultSerialConfig()
		cfg.BaudRate = 1234
		resp := f.do(t, http.MethodPut, "/api/admin/serial/config", f.adminToken, cfg)
		wantStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("source preference", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/api/admin/serial/source", f.adminToken,
			models.SourcePreferenceRequest{Source: models.PreferenceSimulated})
		wantStatus(t, resp, http.StatusOK)

		if got := f.srv.manager.Preference(); got != models.PreferenceSimulated {
			t.Errorf("preference = %s", got)
		}
		pref, err := f.store.SourcePreference(context.Background())
		if err != nil || pref != models.PreferenceSimulated {
			t.Errorf("persisted = %q err=%v", pref, err)
		}
	})

	t.Run("bad preference", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/api/admin/serial/source", f.adminToken,
			models.SourcePreferenceRequest{Source: "morse"})
		wantStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("restart", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/admin/serial/restart", f.adminToken, nil)
		wantStatus(t, resp, http.StatusOK)
	})
}

func TestTelemetryEndpoints(t *testing.T) {
	f := newFixture(t)

	t.Run("channels", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/telemetry/channels", f.userToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var sensors []models.Sensor
		decodeBody(t, resp, &sensors)
		if len(sensors) != 15 {
			t.Errorf("channels = %d", len(sensors))
		}
		if sensors[0].SensorID != "speed" {
			t.Errorf("first channel = %s, want sort order respected", sensors[0].SensorID)
		}
	})

	t.Run("source status", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/telemetry/source", f.userToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var status models.SourceStatus
		decodeBody(t, resp, &status)
		if status.Serial.State != models.SerialDisconnected {
			t.Errorf("serial state = %s", status.Serial.State)
		}
	})

	t.Run("preferences round trip", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/api/telemetry/preferences", f.userToken,
			models.DashboardPreferences{Config: `{"layout":"wide"}`})
		wantStatus(t, resp, http.StatusOK)

		resp = f.do(t, http.MethodGet, "/api/telemetry/preferences", f.userToken, nil)
		wantStatus(t, resp, http.StatusOK)
		var prefs models.DashboardPreferences
		decodeBody(t, resp, &prefs)
		if prefs.Config != `{"layout":"wide"}` {
			t.Errorf("config = %q", prefs.Config)
		}
	})
}

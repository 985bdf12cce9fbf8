// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/models"
)

// maxPreferencesSize bounds the opaque dashboard layout blob.
const maxPreferencesSize = 100 * 1024

const dashboardPrefKey = "dashboard"

// handleChannels returns the enabled sensor catalog, ordered for
// display.
func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.store.ListSensors(r.Context(), true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sensors)
}

// handleSourceStatus reports the active source decision and serial
// counters.
func (s *Server) handleSourceStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.manager.Status())
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.UserPrefs(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.DashboardPreferences{
		Config: prefs[dashboardPrefKey],
	})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPreferencesSize+1))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(body) > maxPreferencesSize {
		respondDetail(w, http.StatusRequestEntityTooLarge, "Preferences exceed 100KB")
		return
	}

	var req models.DashboardPreferences
	if err := json.Unmarshal(body, &req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.store.PutUserPref(r.Context(), currentUser(r).ID, dashboardPrefKey, req.Config); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/telemetry"
	"github.com/pitwall-fsae/pitwall/internal/validation"
)

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.store.ListSensors(r.Context(), false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sensors)
}

func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var sensor models.Sensor
	if err := json.NewDecoder(r.Body).Decode(&sensor); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&sensor); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if sensor.MaxValue <= sensor.MinValue {
		respondDetail(w, http.StatusBadRequest, "max_value must be greater than min_value")
		return
	}

	if err := s.store.CreateSensor(r.Context(), sensor); err != nil {
		respondError(w, r, err)
		return
	}

	s.catalog.Invalidate()
	respondJSON(w, http.StatusCreated, sensor)
}

func (s *Server) handleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var sensor models.Sensor
	if err := json.NewDecoder(r.Body).Decode(&sensor); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	// The path parameter is authoritative for identity.
	sensor.SensorID = id
	if err := validation.ValidateStruct(&sensor); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if sensor.MaxValue <= sensor.MinValue {
		respondDetail(w, http.StatusBadRequest, "max_value must be greater than min_value")
		return
	}

	if err := s.store.UpdateSensor(r.Context(), sensor); err != nil {
		respondError(w, r, err)
		return
	}

	s.catalog.Invalidate()
	respondJSON(w, http.StatusOK, sensor)
}

func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSensor(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.catalog.Invalidate()
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetSerialConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.SerialConfig(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutSerialConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.SerialConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := telemetry.ValidateSerialConfig(cfg); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.store.SetSerialConfig(r.Context(), cfg); err != nil {
		respondError(w, r, err)
		return
	}
	s.serial.Apply(cfg)

	logging.Ctx(r.Context()).Info().
		Str("port", cfg.Port).
		Int("baud", cfg.BaudRate).
		Str("format", cfg.DataFormat).
		Msg("serial configuration updated")
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutSource(w http.ResponseWriter, r *http.Request) {
	var req models.SourcePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SetSourcePreference(r.Context(), req.Source); err != nil {
		respondError(w, r, err)
		return
	}
	s.manager.SetPreference(req.Source)

	respondJSON(w, http.StatusOK, map[string]string{"source_preference": req.Source})
}

func (s *Server) handleSerialRestart(w http.ResponseWriter, r *http.Request) {
	s.serial.Restart()
	respondJSON(w, http.StatusOK, map[string]string{"status": "restarting"})
}

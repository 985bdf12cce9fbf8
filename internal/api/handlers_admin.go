// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/ldx"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

const (
	auditDefaultLimit = 20
	auditMaxLimit     = 100

	maxWatchPathLength = 1024
)

// sensitivePathPrefixes are system locations the watch directory may
// never point into; the watcher rewrites files there.
var sensitivePathPrefixes = []string{
	"/etc", "/var/log", "/usr", "/bin", "/sbin", "/root", "/proc", "/sys", "/dev",
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := auditDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > auditMaxLimit {
			respondDetail(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", auditMaxLimit))
			return
		}
		limit = n
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondDetail(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		offset = n
	}

	page, err := s.store.ListAudit(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetWatchDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := s.store.WatchDirectory(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	var path *string
	if dir != "" {
		path = &dir
	}
	respondJSON(w, http.StatusOK, models.WatchDirectory{Path: path})
}

func (s *Server) handlePutWatchDirectory(w http.ResponseWriter, r *http.Request) {
	var req models.WatchDirectory
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// Null or empty clears the setting and stops the watcher.
	if req.Path == nil || *req.Path == "" {
		if err := s.store.SetWatchDirectory(r.Context(), ""); err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, models.WatchDirectory{Path: nil})
		return
	}

	cleaned, msg := validateWatchPath(*req.Path)
	if msg != "" {
		respondDetail(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.store.SetWatchDirectory(r.Context(), cleaned); err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("path", cleaned).Msg("watch directory updated")
	respondJSON(w, http.StatusOK, models.WatchDirectory{Path: &cleaned})
}

// validateWatchPath absolutizes and checks a candidate watch directory.
// Returns the cleaned path, or a client-facing message on rejection.
func validateWatchPath(path string) (string, string) {
	if len(path) > maxWatchPathLength {
		return "", fmt.Sprintf("Path must be at most %d characters", maxWatchPathLength)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", "Invalid path"
	}

	for _, prefix := range sensitivePathPrefixes {
		if abs == prefix || strings.HasPrefix(abs, prefix+string(filepath.Separator)) {
			return "", "Path points into a protected system directory"
		}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", "Directory does not exist"
	}
	if !info.IsDir() {
		return "", "Path is not a directory"
	}
	if _, err := os.ReadDir(abs); err != nil {
		return "", "Directory is not readable"
	}
	return abs, ""
}

func (s *Server) handleLdxFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.watcher.ListFiles(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, files)
}

func (s *Server) handleLdxInjections(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !ldx.ValidateFileName(name) {
		respondDetail(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	rows, err := s.store.ListInjections(r.Context(), name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLdxStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.LdxStats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportDB(w http.ResponseWriter, r *http.Request) {
	dir, err := s.store.WatchDirectory(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if dir == "" {
		respondDetail(w, http.StatusBadRequest, "Watch directory is not configured")
		return
	}

	filename := fmt.Sprintf("pitwall_export_%s.db", time.Now().UTC().Format("20060102_150405"))
	if err := s.store.ExportTo(r.Context(), filepath.Join(dir, filename)); err != nil {
		respondError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("filename", filename).Msg("database exported")
	respondJSON(w, http.StatusOK, models.ExportResponse{
		Status:   "exported",
		Filename: filename,
	})
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearRuntimeData(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Warn().Msg("runtime data cleared")
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

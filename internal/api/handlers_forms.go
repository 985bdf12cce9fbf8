// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/forms"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// handleListForms returns the schemas the caller may read.
func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	schemas := s.registry.ListForUser(s.enforcer, user.ID)
	if schemas == nil {
		schemas = []*forms.FormSchema{}
	}
	respondJSON(w, http.StatusOK, schemas)
}

// formForRequest resolves the {role} path param to a schema the caller
// may read. Unknown forms and unauthorized forms are both 404/403
// respectively.
func (s *Server) formForRequest(w http.ResponseWriter, r *http.Request, write bool) (*forms.FormSchema, bool) {
	role := chi.URLParam(r, "role")
	schema, ok := s.registry.Get(role)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Form not found")
		return nil, false
	}

	user := currentUser(r)
	allowed := s.enforcer.CanReadForm(user.ID, role)
	if write {
		allowed = s.enforcer.CanWriteForm(user.ID, role)
	}
	if !allowed {
		respondDetail(w, http.StatusForbidden, "Not authorized for this form")
		return nil, false
	}
	return schema, true
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.formForRequest(w, r, false)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, schema)
}

func (s *Server) handleFormValues(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.formForRequest(w, r, false)
	if !ok {
		return
	}
	prefill, err := s.values.GetPrefill(r.Context(), schema.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prefill)
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.formForRequest(w, r, true)
	if !ok {
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	saved, err := s.values.Submit(r.Context(), schema.Role, currentUser(r), req.Values)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.SubmitResponse{Saved: saved})
}

// handleFormsReload re-reads the descriptor directory and rebuilds the
// authorization policies for the new form set.
func (s *Server) handleFormsReload(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Reload(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.enforcer.Rebuild(r.Context(), s.registry.Names()); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"forms":  s.registry.Names(),
	})
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/pitwall-fsae/pitwall/internal/auth"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/validation"
)

// validateRoleAssignment enforces the admin/role invariant: admins
// carry no subteam roles, regular users carry one or two valid ones.
func validateRoleAssignment(isAdmin bool, roles []string) (string, bool) {
	if isAdmin {
		if len(roles) > 0 {
			return "Admin users cannot have roles", false
		}
		return "", true
	}
	if len(roles) < 1 || len(roles) > 2 {
		return "Users must have 1 or 2 roles", false
	}
	seen := map[string]struct{}{}
	for _, role := range roles {
		if !models.IsValidRole(role) {
			return fmt.Sprintf("Invalid role '%s'", role), false
		}
		if _, dup := seen[role]; dup {
			return fmt.Sprintf("Duplicate role '%s'", role), false
		}
		seen[role] = struct{}{}
	}
	return "", true
}

func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateRoleAssignment(req.IsAdmin, req.Roles); !ok {
		respondDetail(w, http.StatusBadRequest, msg)
		return
	}
	if err := auth.ValidatePasswordPolicy(req.Password); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, hash, req.IsAdmin, req.Roles)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.enforcer.SyncUser(user); err != nil {
		logging.CtxErr(r.Context(), err).Int64("user_id", user.ID).Msg("authz sync failed after create")
	}

	logging.Ctx(r.Context()).Info().
		Str("username", user.Username).
		Bool("is_admin", user.IsAdmin).
		Msg("user created")
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.enforcer.RemoveUser(id); err != nil {
		logging.CtxErr(r.Context(), err).Int64("user_id", id).Msg("authz sync failed after delete")
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req models.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := auth.ValidatePasswordPolicy(req.Password); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.UpdatePassword(r.Context(), id, hash); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleUpdateRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		respondDetail(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req models.UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msg, ok := validateRoleAssignment(req.IsAdmin, req.Roles); !ok {
		respondDetail(w, http.StatusBadRequest, msg)
		return
	}

	// Demoting the last admin would lock everyone out, same as deleting
	// them.
	if !req.IsAdmin {
		target, err := s.store.GetUserByID(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if target.IsAdmin {
			admins, err := s.store.CountAdmins(r.Context())
			if err != nil {
				respondError(w, r, err)
				return
			}
			if admins <= 1 {
				respondDetail(w, http.StatusConflict, "cannot demote the last admin")
				return
			}
		}
	}

	if err := s.store.UpdateRoles(r.Context(), id, req.IsAdmin, req.Roles); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.enforcer.SyncUser(user); err != nil {
		logging.CtxErr(r.Context(), err).Int64("user_id", id).Msg("authz sync failed after role change")
	}
	respondJSON(w, http.StatusOK, user)
}

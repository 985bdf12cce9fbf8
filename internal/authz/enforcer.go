// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package authz decides who may read and write which form, using a
// Casbin RBAC model. Policies are derived entirely from runtime state:
// the form registry contributes object rules, the user table
// contributes role groupings. Nothing is persisted; the enforcer is
// rebuilt on boot and resynced whenever users or forms change.
package authz

import (
	"context"
	_ "embed"
	"strconv"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

//go:embed model.conf
var embeddedModel string

// Actions and object prefix used in policy rules.
const (
	ActionRead  = "read"
	ActionWrite = "write"

	formObjectPrefix = "form:"
	adminRole        = "admin"
)

// UserLister is the slice of the store the enforcer needs for resync.
type UserLister interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Enforcer wraps a Casbin enforcer whose policies mirror the current
// form registry and user table.
type Enforcer struct {
	mu       sync.Mutex
	enforcer *casbin.SyncedEnforcer
	users    UserLister
	forms    []string
}

// New builds an enforcer from the embedded model. Call Rebuild before
// first use.
func New(users UserLister) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, err, "load authz model")
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, err, "create enforcer")
	}
	return &Enforcer{enforcer: e, users: users}, nil
}

// Rebuild replaces all policies from the given form names and the
// current user table. Each role-named form yields read and write rules
// for its role; admins match every form through the form:* rule.
func (e *Enforcer) Rebuild(ctx context.Context, formNames []string) error {
	users, err := e.users.ListUsers(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.enforcer.ClearPolicy()
	e.forms = append([]string{}, formNames...)

	if _, err := e.enforcer.AddPolicies([][]string{
		{adminRole, formObjectPrefix + "*", ActionRead},
		{adminRole, formObjectPrefix + "*", ActionWrite},
	}); err != nil {
		return apperrors.Wrap(apperrors.Internal, err, "add admin policies")
	}

	for _, form := range formNames {
		if _, err := e.enforcer.AddPolicies([][]string{
			{form, formObjectPrefix + form, ActionRead},
			{form, formObjectPrefix + form, ActionWrite},
		}); err != nil {
			return apperrors.Wrap(apperrors.Internal, err, "add form policies")
		}
	}

	for i := range users {
		if err := e.addUserGroupings(&users[i]); err != nil {
			return err
		}
	}

	logging.Debug().
		Int("forms", len(formNames)).
		Int("users", len(users)).
		Msg("authorization policies rebuilt")
	return nil
}

// SyncUser refreshes one user's role groupings after a create or role
// change.
func (e *Enforcer) SyncUser(user *models.User) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.removeUserGroupings(user.ID); err != nil {
		return err
	}
	return e.addUserGroupings(user)
}

// RemoveUser drops all groupings for a deleted user.
func (e *Enforcer) RemoveUser(userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeUserGroupings(userID)
}

func (e *Enforcer) addUserGroupings(user *models.User) error {
	subject := subjectID(user.ID)
	roles := user.Roles
	if user.IsAdmin {
		roles = []string{adminRole}
	}
	for _, role := range roles {
		if _, err := e.enforcer.AddGroupingPolicy(subject, role); err != nil {
			return apperrors.Wrap(apperrors.Internal, err, "add role grouping")
		}
	}
	return nil
}

func (e *Enforcer) removeUserGroupings(userID int64) error {
	if _, err := e.enforcer.RemoveFilteredGroupingPolicy(0, subjectID(userID)); err != nil {
		return apperrors.Wrap(apperrors.Internal, err, "remove role groupings")
	}
	return nil
}

// CanReadForm reports whether the user may view the form.
func (e *Enforcer) CanReadForm(userID int64, form string) bool {
	return e.enforce(userID, form, ActionRead)
}

// CanWriteForm reports whether the user may submit values to the form.
func (e *Enforcer) CanWriteForm(userID int64, form string) bool {
	return e.enforce(userID, form, ActionWrite)
}

func (e *Enforcer) enforce(userID int64, form, action string) bool {
	allowed, err := e.enforcer.Enforce(subjectID(userID), formObjectPrefix+form, action)
	if err != nil {
		logging.Error().Err(err).
			Int64("user_id", userID).
			Str("form", form).
			Str("action", action).
			Msg("enforcement failed")
		return false
	}
	return allowed
}

// ReadableForms filters the registered form names down to those the
// user may view, preserving registry order.
func (e *Enforcer) ReadableForms(userID int64, formNames []string) []string {
	out := []string{}
	for _, form := range formNames {
		if e.CanReadForm(userID, form) {
			out = append(out, form)
		}
	}
	return out
}

func subjectID(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package forms

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// Authorizer is the slice of the authz enforcer the registry needs to
// filter forms per user.
type Authorizer interface {
	CanReadForm(userID int64, form string) bool
}

// Registry holds the parsed form schemas, swapped atomically on reload.
type Registry struct {
	dir string

	mu      sync.RWMutex
	schemas map[string]*FormSchema // keyed by role
	order   []string               // roles in load order (sorted file names)
}

// NewRegistry loads the descriptors once. A missing or empty directory
// is a warning only; telemetry-only deployments run without forms.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{dir: dir, schemas: map[string]*FormSchema{}}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads all descriptors and swaps the registry contents
// atomically. On error the previous registry is kept unchanged.
func (r *Registry) Reload() error {
	schemas, order, err := loadDir(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.schemas = schemas
	r.order = order
	r.mu.Unlock()

	logging.Info().
		Str("dir", r.dir).
		Int("forms", len(order)).
		Msg("form registry loaded")
	return nil
}

func loadDir(dir string) (map[string]*FormSchema, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn().Str("dir", dir).Msg("forms directory missing, no forms loaded")
			return map[string]*FormSchema{}, []string{}, nil
		}
		return nil, nil, apperrors.Wrap(apperrors.Internal, err, "read forms directory")
	}

	paths := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	schemas := map[string]*FormSchema{}
	order := []string{}
	for _, path := range paths {
		schema, err := loadDescriptor(path)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := schemas[schema.Role]; dup {
			return nil, nil, apperrors.Ef(apperrors.Internal,
				"duplicate form role %q in %s", schema.Role, filepath.Base(path))
		}
		schemas[schema.Role] = schema
		order = append(order, schema.Role)
	}

	if len(order) == 0 {
		logging.Warn().Str("dir", dir).Msg("no form descriptors found")
	}
	return schemas, order, nil
}

func loadDescriptor(path string) (*FormSchema, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, err,
			fmt.Sprintf("parse form descriptor %s", filepath.Base(path)))
	}

	schema := &FormSchema{}
	if err := k.Unmarshal("", schema); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, err,
			fmt.Sprintf("decode form descriptor %s", filepath.Base(path)))
	}

	if err := schema.validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, err,
			fmt.Sprintf("invalid form descriptor %s", filepath.Base(path)))
	}
	return schema, nil
}

// Get returns the schema for a role.
func (r *Registry) Get(role string) (*FormSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[role]
	return s, ok
}

// All returns every schema in load order.
func (r *Registry) All() []*FormSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*FormSchema, 0, len(r.order))
	for _, role := range r.order {
		out = append(out, r.schemas[role])
	}
	return out
}

// Names returns the registered form roles in load order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// ListForUser returns the schemas the user may read, in load order.
func (r *Registry) ListForUser(az Authorizer, userID int64) []*FormSchema {
	out := []*FormSchema{}
	for _, s := range r.All() {
		if az.CanReadForm(userID, s.Role) {
			out = append(out, s)
		}
	}
	return out
}

// Tabs returns the ordered distinct tabs of a form.
func (r *Registry) Tabs(role string) ([]string, bool) {
	s, ok := r.Get(role)
	if !ok {
		return nil, false
	}
	return s.Tabs(), true
}

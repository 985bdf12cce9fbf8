// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package forms holds the form registry (YAML descriptors loaded at boot
// and on demand) and the value service that backs prefill and submit.
package forms

import (
	"fmt"

	"github.com/pitwall-fsae/pitwall/internal/models"
)

// Field types accepted by the registry.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
)

// FormField is one input in a form descriptor.
type FormField struct {
	Name           string   `koanf:"name" json:"name"`
	Label          string   `koanf:"label" json:"label"`
	Type           string   `koanf:"type" json:"type"`
	Required       bool     `koanf:"required" json:"required"`
	Options        []string `koanf:"options" json:"options,omitempty"`
	Placeholder    string   `koanf:"placeholder" json:"placeholder,omitempty"`
	Unit           string   `koanf:"unit" json:"unit,omitempty"`
	Tab            string   `koanf:"tab" json:"tab,omitempty"`
	Lookback       bool     `koanf:"lookback" json:"lookback"`
	ValidityWindow *float64 `koanf:"validity_window" json:"validity_window,omitempty"`
	UnixTimestamp  bool     `koanf:"unix_timestamp" json:"unix_timestamp"`
	Inject         string   `koanf:"inject" json:"inject,omitempty"`
}

// InjectID returns the LDX entry id for this field: the inject alias
// when set, otherwise the field name.
func (f FormField) InjectID() string {
	if f.Inject != "" {
		return f.Inject
	}
	return f.Name
}

// FormSchema is one parsed descriptor. Forms are role-named: Role is
// both the access-control key and the value-store namespace.
type FormSchema struct {
	FormName string      `koanf:"form_name" json:"form_name"`
	Role     string      `koanf:"role" json:"role"`
	Fields   []FormField `koanf:"fields" json:"fields"`
}

// Field returns the named field, or nil.
func (s *FormSchema) Field(name string) *FormField {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Tabs returns the distinct non-empty tab names in field order.
func (s *FormSchema) Tabs() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, f := range s.Fields {
		if f.Tab == "" {
			continue
		}
		if _, ok := seen[f.Tab]; ok {
			continue
		}
		seen[f.Tab] = struct{}{}
		out = append(out, f.Tab)
	}
	return out
}

// validate checks a descriptor for the boot-blocking schema errors.
func (s *FormSchema) validate() error {
	if s.Role == "" {
		return fmt.Errorf("form %q: role is required", s.FormName)
	}
	if !models.IsValidRole(s.Role) {
		return fmt.Errorf("form %q: unknown role %q", s.FormName, s.Role)
	}
	if s.FormName == "" {
		return fmt.Errorf("form for role %q: form_name is required", s.Role)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("form %q: no fields", s.FormName)
	}

	names := map[string]struct{}{}
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("form %q: field with empty name", s.FormName)
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("form %q: duplicate field %q", s.FormName, f.Name)
		}
		names[f.Name] = struct{}{}

		switch f.Type {
		case FieldText, FieldNumber, FieldTextarea:
		case FieldSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("form %q: select field %q has no options", s.FormName, f.Name)
			}
		default:
			return fmt.Errorf("form %q: field %q has unknown type %q", s.FormName, f.Name, f.Type)
		}
	}
	return nil
}

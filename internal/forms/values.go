// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package forms

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/store"
)

// Submission limits.
const (
	maxSubmitKeys   = 200
	maxValueLength  = 10000
	maxPrefBlobSize = 100 * 1024
)

// ValueService implements prefill and submit on top of the store and
// the registry.
type ValueService struct {
	store    *store.Store
	registry *Registry

	// Per-role mutexes serialize submissions so audit order is linear.
	mu       sync.Mutex
	roleLock map[string]*sync.Mutex
}

// NewValueService builds a value service.
func NewValueService(st *store.Store, registry *Registry) *ValueService {
	return &ValueService{
		store:    st,
		registry: registry,
		roleLock: map[string]*sync.Mutex{},
	}
}

func (v *ValueService) lockRole(role string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, ok := v.roleLock[role]
	if !ok {
		m = &sync.Mutex{}
		v.roleLock[role] = m
	}
	return m
}

// GetPrefill returns the data backing a form page: current values for
// every schema field (nil when unset), UNIX-second timestamps of their
// last change, and previous values for lookback fields.
func (v *ValueService) GetPrefill(ctx context.Context, role string) (*models.Prefill, error) {
	schema, ok := v.registry.Get(role)
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "Form not found")
	}

	stored, err := v.store.ListValues(ctx, role)
	if err != nil {
		return nil, err
	}

	prefill := &models.Prefill{
		Values:         map[string]*string{},
		Timestamps:     map[string]int64{},
		PreviousValues: map[string]*string{},
	}
	for _, field := range schema.Fields {
		state, ok := stored[field.Name]
		if !ok {
			prefill.Values[field.Name] = nil
			continue
		}
		prefill.Values[field.Name] = state.Value
		prefill.Timestamps[field.Name] = state.UpdatedAt.Unix()
		if field.Lookback {
			prefill.PreviousValues[field.Name] = state.PreviousValue
		}
	}
	return prefill, nil
}

// Submit coerces, validates, and persists a submission. Keys absent
// from the schema are ignored. All changed fields are written in one
// transaction; the saved count is the number that actually changed.
func (v *ValueService) Submit(ctx context.Context, role string, user *models.User, valuesIn map[string]interface{}) (int, error) {
	schema, ok := v.registry.Get(role)
	if !ok {
		return 0, apperrors.E(apperrors.NotFound, "Form not found")
	}
	if len(valuesIn) > maxSubmitKeys {
		return 0, apperrors.Ef(apperrors.Validation, "Too many fields in submission (max %d)", maxSubmitKeys)
	}

	type pending struct {
		field string
		value *string
	}
	writes := []pending{}
	fieldErrors := []string{}

	for _, field := range schema.Fields {
		raw, present := valuesIn[field.Name]
		if !present {
			continue
		}
		value, err := coerceValue(&field, raw)
		if err != nil {
			fieldErrors = append(fieldErrors, err.Error())
			continue
		}
		writes = append(writes, pending{field: field.Name, value: value})
	}

	if len(fieldErrors) > 0 {
		return 0, apperrors.E(apperrors.Unprocessable, strings.Join(fieldErrors, "; "))
	}

	lock := v.lockRole(role)
	lock.Lock()
	defer lock.Unlock()

	var userID *int64
	if user != nil {
		userID = &user.ID
	}

	saved := 0
	err := v.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, w := range writes {
			_, _, changed, err := v.store.UpsertFormValue(ctx, tx, role, schema.FormName, w.field, w.value, userID)
			if err != nil {
				return err
			}
			if changed {
				saved++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordFormSubmit(role, saved)
	if saved > 0 {
		logging.Ctx(ctx).Info().
			Str("role", role).
			Int("saved", saved).
			Msg("form values saved")
	}
	return saved, nil
}

// coerceValue normalizes one submitted value to its stored string form.
// nil clears the field; strings are trimmed (empty clears); numbers are
// formatted without a trailing zero fraction.
func coerceValue(field *FormField, raw interface{}) (*string, error) {
	var value string
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		value = strings.TrimSpace(t)
		if value == "" {
			return nil, nil
		}
	case float64:
		value = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		value = strconv.Itoa(t)
	case int64:
		value = strconv.FormatInt(t, 10)
	case bool:
		return nil, fmt.Errorf("Invalid value type for field '%s'", field.Name)
	default:
		return nil, fmt.Errorf("Invalid value type for field '%s'", field.Name)
	}

	if len(value) > maxValueLength {
		return nil, fmt.Errorf("Value for field '%s' exceeds %d characters", field.Name, maxValueLength)
	}

	switch field.Type {
	case FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return nil, fmt.Errorf("Field '%s' must be a number", field.Name)
		}
	case FieldSelect:
		valid := false
		for _, opt := range field.Options {
			if value == opt {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("Invalid option for field '%s'", field.Name)
		}
	}
	return &value, nil
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package models

import "time"

// FormValueState is the stored state of one form field: the current
// value, who set it and when, and the immediately preceding distinct
// value for lookback display.
type FormValueState struct {
	Value         *string   `json:"value"`
	UpdatedAt     time.Time `json:"updated_at"`
	UpdatedBy     *int64    `json:"updated_by,omitempty"`
	PreviousValue *string   `json:"previous_value,omitempty"`
}

// Prefill is the payload backing a form page: current values keyed by
// field name, UNIX-second timestamps of their last change, and previous
// values for fields that opted into lookback.
type Prefill struct {
	Values         map[string]*string `json:"values"`
	Timestamps     map[string]int64   `json:"timestamps"`
	PreviousValues map[string]*string `json:"previous_values"`
}

// SubmitRequest is the body of a form submission. Values may be strings,
// numbers, or null; the value service coerces them per field type.
type SubmitRequest struct {
	Values map[string]interface{} `json:"values"`
}

// SubmitResponse reports how many fields actually changed.
type SubmitResponse struct {
	Saved int `json:"saved"`
}

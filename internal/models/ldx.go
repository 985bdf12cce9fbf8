// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package models

import "time"

// LdxFileRecord marks an LDX file as processed. The (file_name,
// content_hash) pair is the idempotency key: re-observing it skips
// injection entirely.
type LdxFileRecord struct {
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
	ContentHash string    `json:"content_hash"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

// LdxFileInfo describes one file currently present in the watch
// directory, with its processed state.
type LdxFileInfo struct {
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Processed  bool      `json:"processed"`
}

// InjectionLogEntry records one value injected into one LDX file.
// WasUpdate distinguishes values fresh within the field's validity
// window from stale carry-over.
type InjectionLogEntry struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FieldID    string    `json:"field_id"`
	Value      string    `json:"value"`
	WasUpdate  bool      `json:"was_update"`
	InjectedAt time.Time `json:"injected_at"`
}

// InjectionRow is the pre-persistence shape of an injection log entry,
// produced by the injector and written in one batch per file.
type InjectionRow struct {
	FieldID   string
	Value     string
	WasUpdate bool
}

// LdxFileStats aggregates the injection log per file.
type LdxFileStats struct {
	FileName       string     `json:"file_name"`
	Injections     int        `json:"injections"`
	LastInjectedAt *time.Time `json:"last_injected_at,omitempty"`
}

// WatchDirectory is the GET/PUT payload for the watch directory setting.
type WatchDirectory struct {
	Path *string `json:"path"`
}

// ExportResponse reports a completed database export.
type ExportResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

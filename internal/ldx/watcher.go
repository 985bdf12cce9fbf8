// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package ldx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/forms"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/store"
)

const (
	// Files modified within this window are skipped until a later tick,
	// so half-written copies are never hashed.
	debounceWindow = 500 * time.Millisecond

	// Deadline for the atomic rewrite of one file.
	writeTimeout = 10 * time.Second
)

// Watcher polls the configured watch directory and processes new LDX
// files. The watch directory is re-read from the store every tick, so a
// settings change applies without a restart.
type Watcher struct {
	store        *store.Store
	registry     *forms.Registry
	pollInterval time.Duration

	mu            sync.Mutex
	lastProcessed time.Time
}

// NewWatcher builds a watcher. The freshness mark used for was_update
// classification is seeded from the newest processed file on record.
func NewWatcher(ctx context.Context, st *store.Store, registry *forms.Registry, pollInterval time.Duration) (*Watcher, error) {
	mark, err := st.MaxFirstSeenAt(ctx)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:         st,
		registry:      registry,
		pollInterval:  pollInterval,
		lastProcessed: mark,
	}, nil
}

// Serve runs the poll loop until the context is cancelled. Implements
// suture.Service.
func (w *Watcher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	logging.WithComponent("ldx").Info().
		Dur("poll_interval", w.pollInterval).
		Msg("ldx watcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) String() string { return "ldx-watcher" }

// scan runs one poll tick. Per-file errors are logged and counted but
// never abort the scan; the file retries next tick.
func (w *Watcher) scan(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.RecordLDXScan(time.Since(start)) }()

	dir, err := w.store.WatchDirectory(ctx)
	if err != nil {
		logging.WithComponent("ldx").Error().Err(err).Msg("failed to read watch directory setting")
		metrics.RecordLDXError("scan")
		return
	}
	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.WithComponent("ldx").Warn().Err(err).Str("dir", dir).Msg("failed to read watch directory")
		metrics.RecordLDXError("scan")
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || !IsLdxName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < debounceWindow {
			continue
		}
		if err := w.processFile(ctx, dir, entry.Name(), info); err != nil {
			logging.WithComponent("ldx").Error().Err(err).
				Str("file", entry.Name()).
				Msg("ldx file processing failed")
		}
	}
}

// processFile injects values into one file if its content is new. The
// database row is recorded only after the rewrite succeeded, so a write
// failure leaves no trace and the file retries next tick.
func (w *Watcher) processFile(ctx context.Context, dir, name string, info os.FileInfo) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RecordLDXError("scan")
		return err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	processed, err := w.store.IsLdxProcessed(ctx, name, hash)
	if err != nil {
		metrics.RecordLDXError("record")
		return err
	}
	if processed {
		return nil
	}

	entries, err := w.collectEntries(ctx)
	if err != nil {
		metrics.RecordLDXError("inject")
		return err
	}

	out, rows, err := InjectEntries(data, entries)
	if err != nil {
		metrics.RecordLDXError("parse")
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := atomicWrite(writeCtx, path, out); err != nil {
		metrics.RecordLDXError("write")
		return err
	}

	// Hash the rewritten content: the recorded identity must match what
	// is now on disk, or the next tick would reprocess it.
	outSum := sha256.Sum256(out)
	rec := models.LdxFileRecord{
		FileName:    name,
		Size:        int64(len(out)),
		ModifiedAt:  info.ModTime(),
		ContentHash: hex.EncodeToString(outSum[:]),
		FirstSeenAt: time.Now().UTC(),
	}
	if _, err := w.store.RecordLdxFile(ctx, rec, rows); err != nil {
		metrics.RecordLDXError("record")
		return err
	}

	w.mu.Lock()
	if rec.FirstSeenAt.After(w.lastProcessed) {
		w.lastProcessed = rec.FirstSeenAt
	}
	w.mu.Unlock()

	metrics.RecordLDXProcessed(len(rows))
	logging.WithComponent("ldx").Info().
		Str("file", name).
		Int("entries", len(rows)).
		Msg("ldx file processed")
	return nil
}

// collectEntries gathers the injectable values across all forms: one
// entry per field with a non-null stored value.
func (w *Watcher) collectEntries(ctx context.Context) ([]Entry, error) {
	w.mu.Lock()
	mark := w.lastProcessed
	w.mu.Unlock()

	now := time.Now()
	out := []Entry{}
	for _, schema := range w.registry.All() {
		values, err := w.store.ListValues(ctx, schema.Role)
		if err != nil {
			return nil, err
		}
		for _, field := range schema.Fields {
			state, ok := values[field.Name]
			if !ok || state.Value == nil {
				continue
			}
			out = append(out, Entry{
				ID:        field.InjectID(),
				Value:     *state.Value,
				WasUpdate: isUpdate(&field, state.UpdatedAt, now, mark),
			})
		}
	}
	return out, nil
}

// isUpdate classifies an entry as fresh or carried-over. Fields with a
// validity window are fresh while updated_at is inside it; fields
// without one are fresh iff touched since the last processed file.
func isUpdate(field *forms.FormField, updatedAt, now, mark time.Time) bool {
	if field.ValidityWindow != nil {
		window := time.Duration(*field.ValidityWindow * float64(time.Second))
		return now.Sub(updatedAt) <= window
	}
	return updatedAt.After(mark)
}

// atomicWrite replaces path with data via a fsynced sibling temp file
// and rename, so a crash never leaves a truncated file.
func atomicWrite(ctx context.Context, path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	// Durability of the rename itself is best effort.
	if d, err := os.Open(filepath.Dir(path)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// IsLdxName reports whether a file name has the .ldx suffix,
// case-insensitive.
func IsLdxName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".ldx")
}

// ValidateFileName rejects names that could escape the watch directory
// or are not LDX files at all. Used by the API before touching disk.
func ValidateFileName(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return IsLdxName(name)
}

// ListFiles enumerates the LDX files currently in the watch directory,
// newest modification first, with their processed state.
func (w *Watcher) ListFiles(ctx context.Context) ([]models.LdxFileInfo, error) {
	dir, err := w.store.WatchDirectory(ctx)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return []models.LdxFileInfo{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := []models.LdxFileInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !IsLdxName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		processed := false
		if err == nil {
			sum := sha256.Sum256(data)
			processed, _ = w.store.IsLdxProcessed(ctx, entry.Name(), hex.EncodeToString(sum[:]))
		}

		out = append(out, models.LdxFileInfo{
			FileName:   entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			Processed:  processed,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].FileName < out[j].FileName
		}
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out, nil
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// sourceEvalInterval paces the periodic active-source re-evaluation.
// Preference changes trigger an immediate one.
const sourceEvalInterval = time.Second

// Manager decides which telemetry source feeds the hub. Both sources
// run continuously and call Deliver; the manager forwards frames from
// the active one only, stamping timestamp and source. A source switch
// therefore costs at most one frame.
type Manager struct {
	hub     *Hub
	catalog *Catalog
	serial  *SerialReader

	preference atomic.Value // string
	active     atomic.Value // string
	notify     chan struct{}

	// ctx carries the serve lifetime for catalog reads in Deliver.
	ctx atomic.Pointer[context.Context]
}

// NewManager wires the hub, catalog, and serial reader together. The
// initial preference comes from the settings table at boot.
func NewManager(hub *Hub, catalog *Catalog, serial *SerialReader, preference string) *Manager {
	m := &Manager{
		hub:     hub,
		catalog: catalog,
		serial:  serial,
		notify:  make(chan struct{}, 1),
	}
	if !models.IsValidPreference(preference) {
		preference = models.PreferenceAuto
	}
	m.preference.Store(preference)
	m.active.Store(models.SourceSimulated)
	return m
}

// Serve re-evaluates the active source every second and whenever the
// preference changes. Implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	m.ctx.Store(&ctx)
	m.evaluate()

	ticker := time.NewTicker(sourceEvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.evaluate()
		case <-m.notify:
			m.evaluate()
		}
	}
}

func (m *Manager) String() string { return "source-manager" }

// SetPreference installs a new source preference and re-evaluates
// immediately. The caller persists it separately.
func (m *Manager) SetPreference(preference string) {
	if !models.IsValidPreference(preference) {
		return
	}
	m.preference.Store(preference)
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Preference returns the current source preference.
func (m *Manager) Preference() string {
	return m.preference.Load().(string)
}

// ActiveSource returns the source whose frames are being forwarded.
func (m *Manager) ActiveSource() string {
	return m.active.Load().(string)
}

// Status reports the source decision alongside the serial counters.
func (m *Manager) Status() models.SourceStatus {
	return models.SourceStatus{
		ActiveSource:     m.ActiveSource(),
		SourcePreference: m.Preference(),
		Serial:           m.serial.Status(),
	}
}

// evaluate applies the selection rule: an explicit preference wins;
// auto picks serial only while it is live.
func (m *Manager) evaluate() {
	var active string
	switch m.Preference() {
	case models.PreferenceSerial:
		active = models.SourceSerial
	case models.PreferenceSimulated:
		active = models.SourceSimulated
	default:
		if m.serial.Live() {
			active = models.SourceSerial
		} else {
			active = models.SourceSimulated
		}
	}

	prev := m.active.Swap(active)
	if prev != active {
		logging.WithComponent("telemetry").Info().
			Str("from", prev.(string)).
			Str("to", active).
			Msg("active telemetry source changed")
	}
}

// Deliver accepts a channel map from a source and publishes it when
// that source is active. Channels without an enabled sensor are
// dropped, so the wire only ever carries cataloged ids.
func (m *Manager) Deliver(source string, channels map[string]float64) {
	if source != m.ActiveSource() || len(channels) == 0 {
		return
	}

	ctx := context.Background()
	if p := m.ctx.Load(); p != nil {
		ctx = *p
	}
	enabled := m.catalog.Enabled(ctx)
	allowed := make(map[string]struct{}, len(enabled))
	for _, s := range enabled {
		allowed[s.SensorID] = struct{}{}
	}

	filtered := make(map[string]float64, len(channels))
	for id, v := range channels {
		if _, ok := allowed[id]; ok {
			filtered[id] = v
		}
	}
	if len(filtered) == 0 {
		return
	}

	m.hub.Publish(models.Frame{
		Timestamp: float64(time.Now().UTC().UnixNano()) / float64(time.Second),
		Source:    source,
		Channels:  filtered,
	})
	metrics.RecordFramePublished(source)
}

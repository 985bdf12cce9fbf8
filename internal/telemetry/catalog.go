// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/store"
)

// catalogTTL bounds how stale the cached sensor list may get. Sensor
// CRUD also invalidates eagerly, so the TTL only matters for edits made
// outside the API.
const catalogTTL = 5 * time.Second

// Catalog caches the enabled sensors from the store. The simulator and
// decoders read it on every frame, which would otherwise hit SQLite at
// frame rate.
type Catalog struct {
	store *store.Store

	mu        sync.Mutex
	sensors   []models.Sensor
	fetchedAt time.Time
}

// NewCatalog wraps the store's sensor table in a TTL cache.
func NewCatalog(st *store.Store) *Catalog {
	return &Catalog{store: st}
}

// Enabled returns the enabled sensors, refreshing from the store when
// the cache is older than catalogTTL. On refresh failure the previous
// list is served.
func (c *Catalog) Enabled(ctx context.Context) []models.Sensor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sensors != nil && time.Since(c.fetchedAt) < catalogTTL {
		return c.sensors
	}

	sensors, err := c.store.ListSensors(ctx, true)
	if err != nil {
		if c.sensors != nil {
			return c.sensors
		}
		return []models.Sensor{}
	}
	c.sensors = sensors
	c.fetchedAt = time.Now()
	return c.sensors
}

// Invalidate forces the next Enabled call to refetch. Called by the API
// after sensor create/update/delete.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.sensors = nil
	c.mu.Unlock()
}

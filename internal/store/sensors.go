// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// ListSensors returns the catalog ordered by sort_order then id.
// When enabledOnly is set, disabled sensors are filtered out.
func (s *Store) ListSensors(ctx context.Context, enabledOnly bool) ([]models.Sensor, error) {
	query := `SELECT sensor_id, name, unit, min_value, max_value, group_name, sort_order, enabled FROM sensors`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY sort_order, sensor_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "query sensors")
	}
	defer closeRows(rows)

	out := []models.Sensor{}
	for rows.Next() {
		var sn models.Sensor
		var enabled int
		if err := rows.Scan(&sn.SensorID, &sn.Name, &sn.Unit, &sn.MinValue, &sn.MaxValue,
			&sn.Group, &sn.SortOrder, &enabled); err != nil {
			return nil, mapError(err, "scan sensor")
		}
		sn.Enabled = enabled != 0
		out = append(out, sn)
	}
	return out, rows.Err()
}

// GetSensor returns one sensor by id, or NotFound.
func (s *Store) GetSensor(ctx context.Context, sensorID string) (*models.Sensor, error) {
	var sn models.Sensor
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT sensor_id, name, unit, min_value, max_value, group_name, sort_order, enabled FROM sensors WHERE sensor_id = ?`,
		sensorID).Scan(&sn.SensorID, &sn.Name, &sn.Unit, &sn.MinValue, &sn.MaxValue,
		&sn.Group, &sn.SortOrder, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.E(apperrors.NotFound, "sensor not found")
	}
	if err != nil {
		return nil, mapError(err, "query sensor")
	}
	sn.Enabled = enabled != 0
	return &sn, nil
}

// CreateSensor inserts a new sensor. Conflict when the id exists.
func (s *Store) CreateSensor(ctx context.Context, sn models.Sensor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensors (sensor_id, name, unit, min_value, max_value, group_name, sort_order, enabled) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sn.SensorID, sn.Name, sn.Unit, sn.MinValue, sn.MaxValue, sn.Group, sn.SortOrder, sn.Enabled)
	if err != nil {
		if apperrors.IsKind(mapError(err, ""), apperrors.Conflict) {
			return apperrors.E(apperrors.Conflict, "sensor ID already exists")
		}
		return mapError(err, "insert sensor")
	}
	return nil
}

// UpdateSensor replaces the mutable fields of an existing sensor.
func (s *Store) UpdateSensor(ctx context.Context, sn models.Sensor) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sensors SET name = ?, unit = ?, min_value = ?, max_value = ?, group_name = ?, sort_order = ?, enabled = ? WHERE sensor_id = ?`,
		sn.Name, sn.Unit, sn.MinValue, sn.MaxValue, sn.Group, sn.SortOrder, sn.Enabled, sn.SensorID)
	if err != nil {
		return mapError(err, "update sensor")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "rows affected")
	}
	if n == 0 {
		return apperrors.E(apperrors.NotFound, "sensor not found")
	}
	return nil
}

// DeleteSensor removes a sensor by id.
func (s *Store) DeleteSensor(ctx context.Context, sensorID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sensors WHERE sensor_id = ?`, sensorID)
	if err != nil {
		return mapError(err, "delete sensor")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "rows affected")
	}
	if n == 0 {
		return apperrors.E(apperrors.NotFound, "sensor not found")
	}
	return nil
}

// CountSensors returns the catalog size.
func (s *Store) CountSensors(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensors`).Scan(&n); err != nil {
		return 0, mapError(err, "count sensors")
	}
	return n, nil
}

// SeedSensors inserts the given catalog only when the table is empty.
// Returns the number of rows inserted.
func (s *Store) SeedSensors(ctx context.Context, sensors []models.Sensor) (int, error) {
	seeded := 0
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensors`).Scan(&n); err != nil {
			return mapError(err, "count sensors")
		}
		if n > 0 {
			return nil
		}
		for _, sn := range sensors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sensors (sensor_id, name, unit, min_value, max_value, group_name, sort_order, enabled) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				sn.SensorID, sn.Name, sn.Unit, sn.MinValue, sn.MaxValue, sn.Group, sn.SortOrder, sn.Enabled); err != nil {
				return mapError(err, "seed sensor")
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}

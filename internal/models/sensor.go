// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package models

// Sensor is one scalar telemetry channel. The sensor catalog drives both
// the simulator (value ranges) and the CSV/binary decoders (channel ids).
type Sensor struct {
	SensorID  string  `json:"sensor_id" validate:"required,max=64,sensorid"`
	Name      string  `json:"name" validate:"required,max=128"`
	Unit      string  `json:"unit" validate:"max=32"`
	MinValue  float64 `json:"min_value"`
	MaxValue  float64 `json:"max_value"`
	Group     string  `json:"group" validate:"max=64"`
	SortOrder int     `json:"sort_order" validate:"min=-1000,max=10000"`
	Enabled   bool    `json:"enabled"`
}

// DefaultSensors is the seed catalog inserted when the sensor table is
// empty at boot. Ranges match the car's expected operating envelope.
func DefaultSensors() []Sensor {
	return []Sensor{
		{SensorID: "speed", Name: "Speed", Unit: "km/h", MinValue: 0, MaxValue: 160, Group: "Performance", SortOrder: 10, Enabled: true},
		{SensorID: "rpm", Name: "Engine RPM", Unit: "rpm", MinValue: 0, MaxValue: 14000, Group: "Performance", SortOrder: 20, Enabled: true},
		{SensorID: "throttle", Name: "Throttle Position", Unit: "%", MinValue: 0, MaxValue: 100, Group: "Performance", SortOrder: 30, Enabled: true},
		{SensorID: "brake_pressure", Name: "Brake Pressure", Unit: "bar", MinValue: 0, MaxValue: 120, Group: "Performance", SortOrder: 40, Enabled: true},
		{SensorID: "coolant_temp", Name: "Coolant Temp", Unit: "°C", MinValue: 60, MaxValue: 120, Group: "Temperatures", SortOrder: 50, Enabled: true},
		{SensorID: "oil_temp", Name: "Oil Temp", Unit: "°C", MinValue: 60, MaxValue: 140, Group: "Temperatures", SortOrder: 60, Enabled: true},
		{SensorID: "intake_temp", Name: "Intake Air Temp", Unit: "°C", MinValue: 20, MaxValue: 60, Group: "Temperatures", SortOrder: 70, Enabled: true},
		{SensorID: "exhaust_temp", Name: "Exhaust Gas Temp", Unit: "°C", MinValue: 200, MaxValue: 900, Group: "Temperatures", SortOrder: 80, Enabled: true},
		{SensorID: "g_lateral", Name: "Lateral G", Unit: "G", MinValue: -2.5, MaxValue: 2.5, Group: "G-Forces", SortOrder: 90, Enabled: true},
		{SensorID: "g_longitudinal", Name: "Longitudinal G", Unit: "G", MinValue: -3, MaxValue: 3, Group: "G-Forces", SortOrder: 100, Enabled: true},
		{SensorID: "wheel_fl", Name: "Wheel Speed FL", Unit: "km/h", MinValue: 0, MaxValue: 160, Group: "Wheel Speeds", SortOrder: 110, Enabled: true},
		{SensorID: "wheel_fr", Name: "Wheel Speed FR", Unit: "km/h", MinValue: 0, MaxValue: 160, Group: "Wheel Speeds", SortOrder: 120, Enabled: true},
		{SensorID: "wheel_rl", Name: "Wheel Speed RL", Unit: "km/h", MinValue: 0, MaxValue: 160, Group: "Wheel Speeds", SortOrder: 130, Enabled: true},
		{SensorID: "wheel_rr", Name: "Wheel Speed RR", Unit: "km/h", MinValue: 0, MaxValue: 160, Group: "Wheel Speeds", SortOrder: 140, Enabled: true},
		{SensorID: "battery_voltage", Name: "Battery Voltage", Unit: "V", MinValue: 10, MaxValue: 15, Group: "Electrical", SortOrder: 150, Enabled: true},
	}
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package models

// Frame is one telemetry sample across all enabled channels.
// Timestamp is UTC seconds with fractional precision; Source is stamped
// by the hub producer ("simulated" or "serial").
type Frame struct {
	Timestamp float64            `json:"timestamp"`
	Source    string             `json:"source"`
	Channels  map[string]float64 `json:"channels"`
}

// Telemetry source names as they appear on the wire.
const (
	SourceSimulated = "simulated"
	SourceSerial    = "serial"
)

// Source preference values (the persisted selection rule).
const (
	PreferenceAuto      = "auto"
	PreferenceSerial    = "serial"
	PreferenceSimulated = "simulated"
)

// IsValidPreference reports whether s names a source preference.
func IsValidPreference(s string) bool {
	return s == PreferenceAuto || s == PreferenceSerial || s == PreferenceSimulated
}

// Serial data formats.
const (
	FormatCSV         = "csv"
	FormatMotecBinary = "motec_binary"
	FormatAuto        = "auto"
)

// Serial reader states.
const (
	SerialDisconnected = "disconnected"
	SerialConnecting   = "connecting"
	SerialConnected    = "connected"
	SerialError        = "error"
)

// ValidBaudRates is the closed set of accepted modem baud rates.
var ValidBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800}

// IsValidBaudRate reports whether the rate is in ValidBaudRates.
func IsValidBaudRate(rate int) bool {
	for _, r := range ValidBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}

// SerialConfig describes the modem link and how to decode its stream.
// TimeoutSeconds bounds a single read; ReconnectIntervalSeconds paces
// reopen attempts after a fault.
type SerialConfig struct {
	Port                     string   `json:"port" koanf:"port" validate:"max=256"`
	BaudRate                 int      `json:"baud_rate" koanf:"baud_rate"`
	DataFormat               string   `json:"data_format" koanf:"data_format" validate:"oneof=csv motec_binary auto"`
	CSVChannelOrder          []string `json:"csv_channel_order" koanf:"csv_channel_order"`
	CSVSeparator             string   `json:"csv_separator" koanf:"csv_separator" validate:"min=1,max=5"`
	TimeoutSeconds           float64  `json:"timeout" koanf:"timeout" validate:"gte=0.1,lte=60"`
	ReconnectIntervalSeconds float64  `json:"reconnect_interval" koanf:"reconnect_interval" validate:"gte=1,lte=300"`
}

// DefaultSerialConfig returns the out-of-the-box modem configuration.
// The CSV channel order matches the seed sensor catalog.
func DefaultSerialConfig() SerialConfig {
	order := make([]string, 0, len(DefaultSensors()))
	for _, s := range DefaultSensors() {
		order = append(order, s.SensorID)
	}
	return SerialConfig{
		Port:                     "",
		BaudRate:                 9600,
		DataFormat:               FormatAuto,
		CSVChannelOrder:          order,
		CSVSeparator:             ",",
		TimeoutSeconds:           2.0,
		ReconnectIntervalSeconds: 5.0,
	}
}

// SerialStatus is the live state of the serial reader as reported by
// GET /api/telemetry/source.
type SerialStatus struct {
	State          string   `json:"state"`
	Port           string   `json:"port"`
	BaudRate       int      `json:"baud_rate"`
	Format         string   `json:"format"`
	LastFrameTime  *float64 `json:"last_frame_time"`
	FramesReceived uint64   `json:"frames_received"`
	Errors         uint64   `json:"errors"`
	Available      bool     `json:"available"`
}

// SourceStatus combines the active source decision with the persisted
// preference and the serial reader's counters.
type SourceStatus struct {
	ActiveSource     string       `json:"active_source"`
	SourcePreference string       `json:"source_preference"`
	Serial           SerialStatus `json:"serial"`
}

// SourcePreferenceRequest is the PUT body for the source preference.
type SourcePreferenceRequest struct {
	Source string `json:"source" validate:"required,oneof=auto serial simulated"`
}

// DashboardPreferences is the per-user frontend layout blob. The server
// treats it as opaque JSON text, bounded in size.
type DashboardPreferences struct {
	Config string `json:"config"`
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Authentication Metrics
	AuthLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // "success", "unknown_user", "bad_password", "rate_limited"
	)

	AuthTokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_validations_total",
			Help: "Total number of bearer token validation attempts",
		},
		[]string{"result"}, // "valid", "expired", "invalid", "unknown_user"
	)

	// Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of SQLite queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Total number of SQLite query errors",
		},
		[]string{"operation"},
	)

	// Form Metrics
	FormSubmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submits_total",
			Help: "Total number of form submissions",
		},
		[]string{"role"},
	)

	FormValuesChanged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "form_values_changed_total",
			Help: "Total number of form field values that changed on submit",
		},
	)

	// WebSocket Metrics
	WSSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_subscribers",
			Help: "Current number of active WebSocket subscribers",
		},
	)

	WSFramesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_frames_sent_total",
			Help: "Total number of telemetry frames written to WebSocket subscribers",
		},
	)

	WSFramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_frames_dropped_total",
			Help: "Total number of telemetry frames dropped due to slow subscribers",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Telemetry Source Metrics
	TelemetryFramesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_frames_published_total",
			Help: "Total number of telemetry frames published to the hub",
		},
		[]string{"source"}, // "simulated", "serial"
	)

	TelemetryDecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_decode_errors_total",
			Help: "Total number of telemetry decode failures",
		},
		[]string{"format"}, // "csv", "motec_binary"
	)

	SerialReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "serial_reconnects_total",
			Help: "Total number of serial port reconnect attempts",
		},
	)

	SerialErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "serial_errors_total",
			Help: "Total number of serial port errors",
		},
	)

	// LDX Watcher Metrics
	LDXScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ldx_scans_total",
			Help: "Total number of watch directory scans",
		},
	)

	LDXScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ldx_scan_duration_seconds",
			Help:    "Duration of watch directory scans in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LDXFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ldx_files_processed_total",
			Help: "Total number of LDX files processed",
		},
	)

	LDXInjectionEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ldx_injection_entries_total",
			Help: "Total number of entries injected into LDX files",
		},
	)

	LDXErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ldx_errors_total",
			Help: "Total number of LDX processing errors",
		},
		[]string{"stage"}, // "scan", "parse", "inject", "write", "record"
	)

	// Audit Metrics
	AuditEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Total number of audit log entries written",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordStoreQuery records a store query metric
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordLogin records a login attempt outcome
func RecordLogin(result string) {
	AuthLogins.WithLabelValues(result).Inc()
}

// RecordTokenValidation records a bearer token validation outcome
func RecordTokenValidation(result string) {
	AuthTokenValidations.WithLabelValues(result).Inc()
}

// RecordFormSubmit records a form submission and how many values changed
func RecordFormSubmit(role string, changed int) {
	FormSubmits.WithLabelValues(role).Inc()
	if changed > 0 {
		FormValuesChanged.Add(float64(changed))
	}
}

// RecordFramePublished records a telemetry frame published to the hub
func RecordFramePublished(source string) {
	TelemetryFramesPublished.WithLabelValues(source).Inc()
}

// RecordDecodeError records a telemetry decode failure
func RecordDecodeError(format string) {
	TelemetryDecodeErrors.WithLabelValues(format).Inc()
}

// RecordLDXScan records a watch directory scan and its duration
func RecordLDXScan(duration time.Duration) {
	LDXScans.Inc()
	LDXScanDuration.Observe(duration.Seconds())
}

// RecordLDXProcessed records a processed LDX file and its injected entry count
func RecordLDXProcessed(entries int) {
	LDXFilesProcessed.Inc()
	LDXInjectionEntries.Add(float64(entries))
}

// RecordLDXError records an LDX processing error by stage
func RecordLDXError(stage string) {
	LDXErrors.WithLabelValues(stage).Inc()
}

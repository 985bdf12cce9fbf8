// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

/*
Package metrics provides Prometheus metrics collection and export for observability.

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8000/metrics

# Available Metrics

HTTP Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)

Authentication Metrics:
  - auth_logins_total: Login attempts (counter)
    Labels: result (success, unknown_user, bad_password, rate_limited)
  - auth_token_validations_total: Bearer token checks (counter)
    Labels: result (valid, expired, invalid, unknown_user)

Store Metrics:
  - store_query_duration_seconds: SQLite query time (histogram)
    Labels: operation
  - store_query_errors_total: Failed queries (counter)
    Labels: operation

Telemetry Metrics:
  - websocket_subscribers: Active hub subscribers (gauge)
  - websocket_frames_sent_total / websocket_frames_dropped_total (counters)
  - telemetry_frames_published_total: Frames entering the hub (counter)
    Labels: source (simulated, serial)
  - telemetry_decode_errors_total: Decoder failures (counter)
    Labels: format (csv, motec_binary)
  - serial_reconnects_total / serial_errors_total (counters)

LDX Watcher Metrics:
  - ldx_scans_total / ldx_scan_duration_seconds
  - ldx_files_processed_total / ldx_injection_entries_total
  - ldx_errors_total
    Labels: stage (scan, parse, inject, write, record)

All metrics are registered with the default Prometheus registry via promauto;
importing this package is enough to make them visible to the /metrics handler.
Recording helpers are safe for concurrent use.
*/
package metrics

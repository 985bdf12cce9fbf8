// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package middleware

import (
	"net/http"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/logging"
)

// RequestLogger writes one structured line per request. 5xx responses
// log at error level, 4xx at warn, the rest at info. WebSocket upgrades
// are logged after the connection ends, so their duration covers the
// whole session.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		log := logging.Ctx(r.Context())
		var evt = log.Info()
		switch {
		case wrapper.statusCode >= 500:
			evt = log.Error()
		case wrapper.statusCode >= 400:
			evt = log.Warn()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Int("bytes", wrapper.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pitwall-fsae/pitwall/internal/auth"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/telemetry"
)

// closeUnauthorized is the application close code sent when the token
// does not verify. It can only be delivered after the upgrade, so the
// handshake always completes first.
const closeUnauthorized = 4001

var wsUpgrader = websocket.Upgrader{
	HandshakeTimeout: 5 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	// Browser clients authenticate with the token, not the Origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleTelemetryWS upgrades the connection and streams frames. Token
// verification happens before the hub sees the subscriber; a bad token
// gets close 4001 "Unauthorized" on the upgraded socket.
func (s *Server) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		return
	}

	token, ok := auth.ExtractToken(r)
	if !ok {
		rejectWS(conn)
		return
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		rejectWS(conn)
		return
	}
	if _, err := s.store.GetUserByID(r.Context(), claims.UserID); err != nil {
		rejectWS(conn)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("username", claims.Username()).
		Msg("telemetry stream opened")
	telemetry.ServeConn(r.Context(), s.hub, conn)
}

func rejectWS(conn *websocket.Conn) {
	metrics.WSErrors.WithLabelValues("unauthorized").Inc()
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeUnauthorized, "Unauthorized"), deadline)
	_ = conn.Close()
}

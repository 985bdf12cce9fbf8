// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

const (
	// writeWait bounds a single frame or control write.
	writeWait = 10 * time.Second

	// maxMissedPings consecutive unacknowledged pings end the
	// connection with 1011.
	maxMissedPings = 2

	// readWait must exceed pingPeriod so a healthy peer's pongs always
	// arrive in time.
	readWait = 50 * time.Second

	maxMessageSize = 1024
)

// pingPeriod is the heartbeat interval. Variable so tests can shorten
// it.
var pingPeriod = 20 * time.Second

// ServeConn streams hub frames to one WebSocket connection until the
// peer leaves, the heartbeat fails, or the context ends. The subscriber
// is unsubscribed on every exit path.
func ServeConn(ctx context.Context, hub *Hub, conn *websocket.Conn) {
	sub := hub.Subscribe()
	if sub == nil {
		// Hub already shut down.
		closeWith(conn, websocket.CloseGoingAway, "going away")
		conn.Close()
		return
	}
	defer hub.Unsubscribe(sub)
	defer conn.Close()

	log := logging.WithComponent("telemetry")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The pong handler runs on the reader goroutine while the write
	// loop increments, so the counter must be atomic.
	var missedPings atomic.Int32
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		missedPings.Store(0)
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	// Reader goroutine: close and pong detection only; inbound data is
	// discarded.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Frame pump: drains the subscriber queue into a channel the write
	// loop can select on alongside the heartbeat.
	frames := make(chan models.Frame)
	go func() {
		defer close(frames)
		for {
			frame, ok := sub.Next(connCtx)
			if !ok {
				return
			}
			select {
			case frames <- frame:
			case <-connCtx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-connCtx.Done():
			closeWith(conn, websocket.CloseGoingAway, "going away")
			return

		case <-ticker.C:
			if missedPings.Add(1) > maxMissedPings {
				metrics.WSErrors.WithLabelValues("heartbeat_timeout").Inc()
				closeWith(conn, websocket.CloseInternalServerErr, "heartbeat timeout")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WSErrors.WithLabelValues("ping_write").Inc()
				return
			}

		case frame, ok := <-frames:
			if !ok {
				// Subscriber closed: hub shutdown or context end.
				closeWith(conn, websocket.CloseGoingAway, "going away")
				return
			}
			payload, err := json.Marshal(frame)
			if err != nil {
				log.Error().Err(err).Msg("frame marshal failed")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("frame_write").Inc()
				return
			}
			metrics.WSFramesSent.Inc()
		}
	}
}

// closeWith sends a close frame with the given code; write errors are
// ignored because the peer may already be gone.
func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason))
}

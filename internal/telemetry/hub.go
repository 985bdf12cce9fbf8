// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package telemetry implements the live data pipeline: frame producers
// (simulator and serial reader), the source manager that picks between
// them, and the hub that fans frames out to WebSocket subscribers.
package telemetry

import (
	"context"
	"sync"

	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// Hub fans telemetry frames out to all subscribers. Publish never
// blocks on a slow subscriber; each subscriber has its own bounded
// queue with drop-oldest overflow.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	shutdown    bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: map[*Subscriber]struct{}{}}
}

// Serve blocks until the context is cancelled, then closes every
// subscriber. Implements suture.Service so the hub shares the
// supervision tree's lifecycle.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()
	h.CloseAll()
	return ctx.Err()
}

func (h *Hub) String() string { return "telemetry-hub" }

// Publish fans one frame out to the current subscriber set. The set is
// snapshotted under a short read lock; enqueueing happens outside it.
func (h *Hub) Publish(frame models.Frame) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.enqueue(frame)
	}
}

// Subscribe registers a new subscriber. Returns nil after shutdown.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shutdown {
		return nil
	}
	s := newSubscriber()
	h.subscribers[s] = struct{}{}
	metrics.WSSubscribers.Set(float64(len(h.subscribers)))
	return s
}

// Unsubscribe removes and closes a subscriber. Idempotent.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	_, present := h.subscribers[s]
	delete(h.subscribers, s)
	metrics.WSSubscribers.Set(float64(len(h.subscribers)))
	h.mu.Unlock()

	if present {
		s.Close()
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// CloseAll closes every subscriber and refuses new ones. The WS layer
// observes the close and sends 1001 "going away" to its peer.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.shutdown = true
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.subscribers = map[*Subscriber]struct{}{}
	metrics.WSSubscribers.Set(0)
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	if len(subs) > 0 {
		logging.WithComponent("telemetry").Info().
			Int("subscribers", len(subs)).
			Msg("hub closed all subscribers")
	}
}

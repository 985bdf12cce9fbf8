// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// queueCapacity bounds each subscriber's pending frames. A slow reader
// loses its oldest frames, never the newest.
const queueCapacity = 64

// Subscriber is one WebSocket client's frame queue. Enqueue never
// blocks the publisher; overflow drops the oldest queued frame.
type Subscriber struct {
	mu     sync.Mutex
	queue  []models.Frame
	notify chan struct{}
	done   chan struct{}
	closed bool

	dropped atomic.Uint64
}

func newSubscriber() *Subscriber {
	return &Subscriber{
		queue:  make([]models.Frame, 0, queueCapacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// enqueue adds a frame, dropping the oldest when full.
func (s *Subscriber) enqueue(frame models.Frame) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= queueCapacity {
		copy(s.queue, s.queue[1:])
		s.queue = s.queue[:len(s.queue)-1]
		s.dropped.Add(1)
		metrics.WSFramesDropped.Inc()
	}
	s.queue = append(s.queue, frame)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a frame is available or the subscriber/context is
// done. The second return is false when no more frames will arrive.
func (s *Subscriber) Next(ctx context.Context) (models.Frame, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			frame := s.queue[0]
			copy(s.queue, s.queue[1:])
			s.queue = s.queue[:len(s.queue)-1]
			s.mu.Unlock()
			return frame, true
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return models.Frame{}, false
		}

		select {
		case <-s.notify:
		case <-s.done:
			return models.Frame{}, false
		case <-ctx.Done():
			return models.Frame{}, false
		}
	}
}

// Close wakes any blocked reader. Idempotent.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
}

// Dropped returns how many frames this subscriber has lost to
// backpressure.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Done exposes the closed signal for select loops.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// simulatorInterval gives the 10 Hz frame rate expected by the
// dashboard gauges.
const simulatorInterval = 100 * time.Millisecond

// Sink receives decoded channel maps from a telemetry source. The
// manager stamps the frame with its timestamp and source label.
type Sink interface {
	Deliver(source string, channels map[string]float64)
}

// Simulator generates plausible telemetry for every enabled sensor so
// the dashboard works without the car. Each sensor follows a sine wave
// whose frequency and phase are derived from its id, plus a little
// noise, so channels look independent but are reproducible run to run.
type Simulator struct {
	catalog *Catalog
	sink    Sink

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator builds a simulator feeding the given sink.
func NewSimulator(catalog *Catalog, sink Sink) *Simulator {
	return &Simulator{
		catalog: catalog,
		sink:    sink,
		// Fixed seed keeps the noise stream reproducible.
		rng: rand.New(rand.NewSource(1)),
	}
}

// Serve emits one frame every simulatorInterval until cancelled.
// Implements suture.Service.
func (s *Simulator) Serve(ctx context.Context) error {
	ticker := time.NewTicker(simulatorInterval)
	defer ticker.Stop()

	logging.WithComponent("telemetry").Info().Msg("simulator started")

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.emit(ctx, now.Sub(start).Seconds())
		}
	}
}

func (s *Simulator) String() string { return "telemetry-simulator" }

func (s *Simulator) emit(ctx context.Context, t float64) {
	sensors := s.catalog.Enabled(ctx)
	if len(sensors) == 0 {
		return
	}

	channels := make(map[string]float64, len(sensors))
	s.mu.Lock()
	for _, sensor := range sensors {
		channels[sensor.SensorID] = s.sample(&sensor, t)
	}
	s.mu.Unlock()

	s.sink.Deliver(models.SourceSimulated, channels)
}

// sample evaluates one sensor's waveform at time t seconds: a sine
// between min and max with 1% of the range as noise, clamped back to
// the range.
func (s *Simulator) sample(sensor *models.Sensor, t float64) float64 {
	freq, phase := waveParams(sensor.SensorID)
	span := sensor.MaxValue - sensor.MinValue

	value := sensor.MinValue + span*(0.5+0.5*math.Sin(2*math.Pi*freq*t+phase))
	value += (s.rng.Float64()*2 - 1) * 0.01 * span

	if value < sensor.MinValue {
		value = sensor.MinValue
	}
	if value > sensor.MaxValue {
		value = sensor.MaxValue
	}
	return value
}

// waveParams derives a stable frequency in [0.05, 0.5) Hz and phase in
// [0, 2π) from the sensor id, so each channel gets its own waveform
// without any stored state.
func waveParams(sensorID string) (freq, phase float64) {
	h := fnv.New64a()
	h.Write([]byte(sensorID))
	sum := h.Sum64()

	hi := float64(sum>>32) / float64(1<<32)
	lo := float64(sum&0xFFFFFFFF) / float64(1<<32)

	freq = 0.05 + hi*0.45
	phase = lo * 2 * math.Pi
	return freq, phase
}

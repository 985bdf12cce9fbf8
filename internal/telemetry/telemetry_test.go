// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/models"
	"github.com/pitwall-fsae/pitwall/internal/store"
)

func TestSubscriberDropOldest(t *testing.T) {
	s := newSubscriber()
	for i := 0; i < queueCapacity+5; i++ {
		s.enqueue(models.Frame{Timestamp: float64(i)})
	}

	if got := s.Dropped(); got != 5 {
		t.Errorf("dropped = %d, want 5", got)
	}

	ctx := context.Background()
	first, ok := s.Next(ctx)
	if !ok {
		t.Fatal("Next returned no frame")
	}
	// Oldest five were dropped; the head is frame 5.
	if first.Timestamp != 5 {
		t.Errorf("head timestamp = %v, want 5", first.Timestamp)
	}
}

func TestSubscriberNextUnblocksOnClose(t *testing.T) {
	s := newSubscriber()
	done := make(chan bool, 1)
	go func() {
		_, ok := s.Next(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Next reported a frame after close")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock on close")
	}
}

func TestHubPublishFanout(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	frame := models.Frame{Timestamp: 1, Source: models.SourceSimulated,
		Channels: map[string]float64{"rpm": 9000}}
	h.Publish(frame)

	ctx := context.Background()
	for _, sub := range []*Subscriber{a, b} {
		got, ok := sub.Next(ctx)
		if !ok || got.Channels["rpm"] != 9000 {
			t.Errorf("subscriber got %+v ok=%v", got, ok)
		}
	}
}

func TestHubShutdown(t *testing.T) {
	h := NewHub()
	s := h.Subscribe()

	h.CloseAll()

	select {
	case <-s.Done():
	default:
		t.Error("subscriber not closed on shutdown")
	}
	if h.Subscribe() != nil {
		t.Error("Subscribe succeeded after shutdown")
	}
	if h.SubscriberCount() != 0 {
		t.Errorf("count = %d after shutdown", h.SubscriberCount())
	}
}

func TestWaveParams(t *testing.T) {
	f1, p1 := waveParams("rpm")
	f2, p2 := waveParams("rpm")
	if f1 != f2 || p1 != p2 {
		t.Error("waveParams not deterministic")
	}

	f3, _ := waveParams("speed")
	if f1 == f3 {
		t.Error("different sensors share a frequency")
	}

	for _, id := range []string{"rpm", "speed", "coolant_temp", "g_lateral"} {
		f, p := waveParams(id)
		if f < 0.05 || f >= 0.5 {
			t.Errorf("%s: freq %v out of range", id, f)
		}
		if p < 0 || p >= 2*math.Pi {
			t.Errorf("%s: phase %v out of range", id, p)
		}
	}
}

func TestSimulatorSampleStaysInRange(t *testing.T) {
	sensor := models.Sensor{SensorID: "rpm", MinValue: 0, MaxValue: 14000}
	sim := NewSimulator(nil, nil)
	for i := 0; i < 500; i++ {
		v := sim.sample(&sensor, float64(i)*0.1)
		if v < sensor.MinValue || v > sensor.MaxValue {
			t.Fatalf("sample %v outside [%v, %v]", v, sensor.MinValue, sensor.MaxValue)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"csv lines", []byte("12.3,45.6,78.9\n10.0,20.0,30.0\n"), models.FormatCSV},
		{"binary", []byte{0xAA, 0x01, 0x02, 0x03, 0x00, 0xFF, 0xFE, 0xAA}, models.FormatMotecBinary},
		{"printable without newline", []byte("1,2,3"), models.FormatMotecBinary},
		{"empty", nil, models.FormatMotecBinary},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormat(tc.data); got != tc.want {
				t.Errorf("DetectFormat = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCSVDecoder(t *testing.T) {
	cfg := models.SerialConfig{
		CSVChannelOrder: []string{"speed", "rpm", "throttle"},
		CSVSeparator:    ",",
	}
	d := newCSVDecoder(cfg)

	t.Run("partial then complete line", func(t *testing.T) {
		if frames := d.Feed([]byte("88.5,93")); len(frames) != 0 {
			t.Fatalf("partial line produced %d frames", len(frames))
		}
		frames := d.Feed([]byte("00,45.2\n"))
		if len(frames) != 1 {
			t.Fatalf("frames = %d", len(frames))
		}
		got := frames[0]
		if got["speed"] != 88.5 || got["rpm"] != 9300 || got["throttle"] != 45.2 {
			t.Errorf("decoded %v", got)
		}
	})

	t.Run("bad column omitted", func(t *testing.T) {
		frames := d.Feed([]byte("50.0,notanumber,10\n"))
		if len(frames) != 1 {
			t.Fatalf("frames = %d", len(frames))
		}
		if _, ok := frames[0]["rpm"]; ok {
			t.Error("unparseable column decoded")
		}
		if frames[0]["speed"] != 50 || frames[0]["throttle"] != 10 {
			t.Errorf("decoded %v", frames[0])
		}
	})

	t.Run("extra columns ignored", func(t *testing.T) {
		frames := d.Feed([]byte("1,2,3,4,5\n"))
		if len(frames) != 1 || len(frames[0]) != 3 {
			t.Errorf("decoded %v", frames)
		}
	})

	t.Run("blank line skipped", func(t *testing.T) {
		if frames := d.Feed([]byte("\r\n\n")); len(frames) != 0 {
			t.Errorf("blank lines produced %v", frames)
		}
	})
}

// buildMotecFrame assembles one wire frame for the given CAN id and
// int16 signals.
func buildMotecFrame(id uint16, signals ...int16) []byte {
	payload := make([]byte, 2*len(signals))
	for i, s := range signals {
		binary.LittleEndian.PutUint16(payload[2*i:], uint16(s))
	}
	frame := []byte{motecSync}
	frame = binary.LittleEndian.AppendUint16(frame, id)
	frame = append(frame, byte(len(payload)))
	frame = append(frame, payload...)
	crc := crc16CCITT(frame[1:])
	frame = binary.LittleEndian.AppendUint16(frame, crc)
	return frame
}

func TestMotecDecoder(t *testing.T) {
	t.Run("decodes scaled signals", func(t *testing.T) {
		d := newMotecDecoder(nil)
		data := buildMotecFrame(0x5F2, 850, 1050) // coolant 45.0, oil 65.0
		frames := d.Feed(data)
		if len(frames) != 1 {
			t.Fatalf("frames = %d", len(frames))
		}
		if got := frames[0]["coolant_temp"]; math.Abs(got-45.0) > 1e-9 {
			t.Errorf("coolant = %v", got)
		}
		if got := frames[0]["oil_temp"]; math.Abs(got-65.0) > 1e-9 {
			t.Errorf("oil = %v", got)
		}
	})

	t.Run("resyncs after corruption", func(t *testing.T) {
		errs := 0
		d := newMotecDecoder(func() { errs++ })

		good := buildMotecFrame(0x5F0, 9000, 500)
		corrupt := append([]byte{}, good...)
		corrupt[5] ^= 0xFF // flip a payload byte, CRC now fails

		stream := append(corrupt, good...)
		frames := d.Feed(stream)
		if errs != 1 {
			t.Errorf("errors = %d, want 1", errs)
		}
		if len(frames) != 1 {
			t.Fatalf("frames = %d, want 1 after resync", len(frames))
		}
		if frames[0]["rpm"] != 9000 {
			t.Errorf("rpm = %v", frames[0]["rpm"])
		}
	})

	t.Run("junk before sync skipped", func(t *testing.T) {
		d := newMotecDecoder(nil)
		stream := append([]byte{0x00, 0x13, 0x37}, buildMotecFrame(0x5F7, 1320)...)
		frames := d.Feed(stream)
		if len(frames) != 1 || math.Abs(frames[0]["battery_voltage"]-13.2) > 1e-9 {
			t.Errorf("frames = %v", frames)
		}
	})

	t.Run("accumulates between emits", func(t *testing.T) {
		d := newMotecDecoder(nil)
		clock := time.Unix(1000, 0)
		d.now = func() time.Time { return clock }

		// First frame emits immediately (lastEmit is zero).
		if frames := d.Feed(buildMotecFrame(0x5F0, 9000, 500)); len(frames) != 1 {
			t.Fatalf("first emit frames = %d", len(frames))
		}
		// Within the interval: accumulate, no emit.
		clock = clock.Add(50 * time.Millisecond)
		if frames := d.Feed(buildMotecFrame(0x5F1, 885, 300)); len(frames) != 0 {
			t.Fatalf("early emit: %v", frames)
		}
		// Past the interval: both pending messages in one map.
		clock = clock.Add(60 * time.Millisecond)
		frames := d.Feed(buildMotecFrame(0x5F7, 1250))
		if len(frames) != 1 {
			t.Fatalf("frames = %d", len(frames))
		}
		got := frames[0]
		if _, ok := got["speed"]; !ok {
			t.Error("accumulated speed missing")
		}
		if _, ok := got["battery_voltage"]; !ok {
			t.Error("battery missing")
		}
	})

	t.Run("unknown id ignored", func(t *testing.T) {
		d := newMotecDecoder(nil)
		if frames := d.Feed(buildMotecFrame(0x123, 42)); len(frames) != 0 {
			t.Errorf("frames = %v", frames)
		}
	})
}

func TestValidateSerialConfig(t *testing.T) {
	valid := models.DefaultSerialConfig()
	if err := ValidateSerialConfig(valid); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*models.SerialConfig)
		want   string
	}{
		{"bad baud", func(c *models.SerialConfig) { c.BaudRate = 1234 }, "baud rate"},
		{"bad format", func(c *models.SerialConfig) { c.DataFormat = "json" }, "data format"},
		{"timeout too small", func(c *models.SerialConfig) { c.TimeoutSeconds = 0.01 }, "timeout"},
		{"reconnect too large", func(c *models.SerialConfig) { c.ReconnectIntervalSeconds = 999 }, "reconnect"},
		{"long port", func(c *models.SerialConfig) { c.Port = strings.Repeat("p", 300) }, "port"},
		{"empty separator", func(c *models.SerialConfig) { c.CSVSeparator = "" }, "separator"},
		{"bad channel id", func(c *models.SerialConfig) { c.CSVChannelOrder = []string{"ok", "no spaces"} }, "channel id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := models.DefaultSerialConfig()
			tc.mutate(&cfg)
			err := ValidateSerialConfig(cfg)
			if err == nil {
				t.Fatal("invalid config accepted")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}

	t.Run("multiple problems joined", func(t *testing.T) {
		cfg := models.DefaultSerialConfig()
		cfg.BaudRate = 1
		cfg.DataFormat = "x"
		err := ValidateSerialConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), "; ") {
			t.Errorf("joined error = %v", err)
		}
	})
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "pitwall.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.SeedSensors(context.Background(), models.DefaultSensors()); err != nil {
		t.Fatalf("SeedSensors: %v", err)
	}
	return NewCatalog(st)
}

func TestCatalogCachesAndInvalidates(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	first := catalog.Enabled(ctx)
	if len(first) != len(models.DefaultSensors()) {
		t.Fatalf("enabled = %d", len(first))
	}

	// Mutate the table behind the cache: still served from cache.
	if err := catalog.store.DeleteSensor(ctx, "rpm"); err != nil {
		t.Fatalf("DeleteSensor: %v", err)
	}
	if got := catalog.Enabled(ctx); len(got) != len(first) {
		t.Errorf("cache missed within TTL: %d", len(got))
	}

	catalog.Invalidate()
	if got := catalog.Enabled(ctx); len(got) != len(first)-1 {
		t.Errorf("after invalidate enabled = %d, want %d", len(got), len(first)-1)
	}
}

// recordingSink captures Deliver calls for source tests.
type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingSink) Deliver(source string, channels map[string]float64) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf("%s:%d", source, len(channels)))
	r.mu.Unlock()
}

func TestSimulatorEmit(t *testing.T) {
	catalog := newTestCatalog(t)
	sink := &recordingSink{}
	sim := NewSimulator(catalog, sink)

	sim.emit(context.Background(), 1.5)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.calls) != 1 {
		t.Fatalf("deliveries = %d", len(sink.calls))
	}
	want := fmt.Sprintf("%s:%d", models.SourceSimulated, len(models.DefaultSensors()))
	if sink.calls[0] != want {
		t.Errorf("delivery = %s, want %s", sink.calls[0], want)
	}
}

func TestManagerSourceSelection(t *testing.T) {
	catalog := newTestCatalog(t)
	hub := NewHub()
	serial := NewSerialReader(models.DefaultSerialConfig(), nil)

	m := NewManager(hub, catalog, serial, models.PreferenceAuto)

	t.Run("auto without serial picks simulator", func(t *testing.T) {
		m.evaluate()
		if got := m.ActiveSource(); got != models.SourceSimulated {
			t.Errorf("active = %s", got)
		}
	})

	t.Run("auto with live serial picks serial", func(t *testing.T) {
		serial.setState(models.SerialConnected)
		serial.lastUnix.Store(time.Now().UnixNano())
		m.evaluate()
		if got := m.ActiveSource(); got != models.SourceSerial {
			t.Errorf("active = %s", got)
		}
	})

	t.Run("auto with stale serial falls back", func(t *testing.T) {
		serial.lastUnix.Store(time.Now().Add(-10 * time.Second).UnixNano())
		m.evaluate()
		if got := m.ActiveSource(); got != models.SourceSimulated {
			t.Errorf("active = %s", got)
		}
	})

	t.Run("explicit preference overrides liveness", func(t *testing.T) {
		m.SetPreference(models.PreferenceSerial)
		m.evaluate()
		if got := m.ActiveSource(); got != models.SourceSerial {
			t.Errorf("active = %s", got)
		}
		m.SetPreference(models.PreferenceAuto)
	})
}

func TestManagerDeliverFiltersAndStamps(t *testing.T) {
	catalog := newTestCatalog(t)
	hub := NewHub()
	serial := NewSerialReader(models.DefaultSerialConfig(), nil)
	m := NewManager(hub, catalog, serial, models.PreferenceSimulated)
	m.evaluate()

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	t.Run("inactive source dropped", func(t *testing.T) {
		m.Deliver(models.SourceSerial, map[string]float64{"rpm": 1})
		if got := len(sub.queue); got != 0 {
			t.Errorf("queued = %d", got)
		}
	})

	t.Run("active source published with unknown ids filtered", func(t *testing.T) {
		m.Deliver(models.SourceSimulated, map[string]float64{
			"rpm":     9000,
			"unknown": 1,
		})
		frame, ok := sub.Next(context.Background())
		if !ok {
			t.Fatal("no frame published")
		}
		if frame.Source != models.SourceSimulated {
			t.Errorf("source = %s", frame.Source)
		}
		if frame.Timestamp == 0 {
			t.Error("timestamp not stamped")
		}
		if _, ok := frame.Channels["unknown"]; ok {
			t.Error("uncataloged channel passed through")
		}
		if frame.Channels["rpm"] != 9000 {
			t.Errorf("rpm = %v", frame.Channels["rpm"])
		}
	})
}

func TestSerialStatusFields(t *testing.T) {
	cfg := models.DefaultSerialConfig()
	cfg.Port = "/dev/ttyUSB0"
	cfg.DataFormat = models.FormatCSV
	r := NewSerialReader(cfg, &recordingSink{})

	st := r.Status()
	if st.State != models.SerialDisconnected {
		t.Errorf("state = %s", st.State)
	}
	if st.Port != "/dev/ttyUSB0" || st.BaudRate != 9600 {
		t.Errorf("port/baud = %s/%d", st.Port, st.BaudRate)
	}
	if st.LastFrameTime != nil {
		t.Error("last frame time set before any frame")
	}
	if st.Available {
		t.Error("available while disconnected")
	}

	r.setState(models.SerialConnected)
	r.lastUnix.Store(time.Now().UnixNano())
	r.frames.Add(3)
	st = r.Status()
	if !st.Available || st.FramesReceived != 3 || st.LastFrameTime == nil {
		t.Errorf("status after frames = %+v", st)
	}
}

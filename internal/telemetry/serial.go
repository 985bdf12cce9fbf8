// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goserial "go.bug.st/serial"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/logging"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// serialLiveness is how recent the last decoded frame must be for the
// serial source to count as live.
const serialLiveness = 5 * time.Second

// detectPeekSize bounds the bytes inspected for format auto-detection.
const detectPeekSize = 256

var channelIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateSerialConfig checks a serial configuration against the
// accepted ranges. Violations are reported as one Validation error with
// all messages joined.
func ValidateSerialConfig(cfg models.SerialConfig) error {
	var problems []string
	if len(cfg.Port) > 256 {
		problems = append(problems, "port must be at most 256 characters")
	}
	if !models.IsValidBaudRate(cfg.BaudRate) {
		problems = append(problems, fmt.Sprintf("baud rate %d is not supported", cfg.BaudRate))
	}
	switch cfg.DataFormat {
	case models.FormatCSV, models.FormatMotecBinary, models.FormatAuto:
	default:
		problems = append(problems, fmt.Sprintf("unknown data format '%s'", cfg.DataFormat))
	}
	if l := len(cfg.CSVSeparator); l < 1 || l > 5 {
		problems = append(problems, "csv separator must be 1 to 5 characters")
	}
	if cfg.TimeoutSeconds < 0.1 || cfg.TimeoutSeconds > 60 {
		problems = append(problems, "timeout must be between 0.1 and 60 seconds")
	}
	if cfg.ReconnectIntervalSeconds < 1 || cfg.ReconnectIntervalSeconds > 300 {
		problems = append(problems, "reconnect interval must be between 1 and 300 seconds")
	}
	for _, id := range cfg.CSVChannelOrder {
		if len(id) > 64 || !channelIDPattern.MatchString(id) {
			problems = append(problems, fmt.Sprintf("invalid channel id '%s'", id))
		}
	}
	if len(problems) > 0 {
		return apperrors.E(apperrors.Validation, strings.Join(problems, "; "))
	}
	return nil
}

// serialCommand is a control message for the reader goroutine.
type serialCommand struct {
	config  *models.SerialConfig
	restart bool
}

// SerialReader owns the serial port. It runs a reconnect loop, decodes
// the byte stream, and delivers channel maps to the sink. Configuration
// changes and restarts arrive over a control channel so only the reader
// goroutine ever touches the port.
type SerialReader struct {
	sink     Sink
	control  chan serialCommand
	stateMu  sync.Mutex
	state    string
	detected string

	config   atomic.Pointer[models.SerialConfig]
	frames   atomic.Uint64
	errors   atomic.Uint64
	lastUnix atomic.Int64 // UnixNano of the last decoded frame, 0 = never

	// openPort is swappable for tests.
	openPort func(port string, baud int) (goserial.Port, error)
}

// NewSerialReader builds a reader with the given initial configuration.
func NewSerialReader(cfg models.SerialConfig, sink Sink) *SerialReader {
	r := &SerialReader{
		sink:    sink,
		control: make(chan serialCommand, 4),
		state:   models.SerialDisconnected,
		openPort: func(port string, baud int) (goserial.Port, error) {
			return goserial.Open(port, &goserial.Mode{BaudRate: baud})
		},
	}
	r.config.Store(&cfg)
	return r
}

// SetSink installs the frame destination. The reader and the manager
// reference each other, so the sink is wired after construction and
// before Serve starts.
func (r *SerialReader) SetSink(sink Sink) {
	r.sink = sink
}

// Apply installs a new configuration; the reader reopens the port with
// it. The config must already be validated.
func (r *SerialReader) Apply(cfg models.SerialConfig) {
	r.config.Store(&cfg)
	select {
	case r.control <- serialCommand{config: &cfg}:
	default:
	}
}

// Restart asks the reader to close and reopen the port.
func (r *SerialReader) Restart() {
	select {
	case r.control <- serialCommand{restart: true}:
	default:
	}
}

// Live reports whether serial frames are currently arriving: connected
// and a frame decoded within the liveness window.
func (r *SerialReader) Live() bool {
	r.stateMu.Lock()
	state := r.state
	r.stateMu.Unlock()
	if state != models.SerialConnected {
		return false
	}
	last := r.lastUnix.Load()
	return last != 0 && time.Since(time.Unix(0, last)) <= serialLiveness
}

// Status reports the reader's state for the telemetry source endpoint.
func (r *SerialReader) Status() models.SerialStatus {
	cfg := r.config.Load()

	r.stateMu.Lock()
	state := r.state
	detected := r.detected
	r.stateMu.Unlock()

	format := cfg.DataFormat
	if format == models.FormatAuto && detected != "" {
		format = detected
	}

	var lastFrame *float64
	if last := r.lastUnix.Load(); last != 0 {
		sec := float64(last) / float64(time.Second)
		lastFrame = &sec
	}

	return models.SerialStatus{
		State:          state,
		Port:           cfg.Port,
		BaudRate:       cfg.BaudRate,
		Format:         format,
		LastFrameTime:  lastFrame,
		FramesReceived: r.frames.Load(),
		Errors:         r.errors.Load(),
		Available:      r.Live(),
	}
}

func (r *SerialReader) setState(state string) {
	r.stateMu.Lock()
	changed := r.state != state
	r.state = state
	r.stateMu.Unlock()
	if changed {
		logging.WithComponent("serial").Info().Str("state", state).Msg("serial state changed")
	}
}

func (r *SerialReader) setDetected(format string) {
	r.stateMu.Lock()
	r.detected = format
	r.stateMu.Unlock()
}

// Serve runs the reconnect loop until cancelled. Implements
// suture.Service.
func (r *SerialReader) Serve(ctx context.Context) error {
	log := logging.WithComponent("serial")
	for {
		if err := ctx.Err(); err != nil {
			r.setState(models.SerialDisconnected)
			return err
		}

		cfg := *r.config.Load()
		if cfg.Port == "" {
			r.setState(models.SerialDisconnected)
			if !r.waitForCommand(ctx, time.Second) {
				continue
			}
			continue
		}

		r.setState(models.SerialConnecting)
		port, err := r.openPort(cfg.Port, cfg.BaudRate)
		if err != nil {
			r.errors.Add(1)
			metrics.SerialErrors.Inc()
			r.setState(models.SerialError)
			log.Warn().Err(err).Str("port", cfg.Port).Msg("serial open failed")
			r.waitForCommand(ctx, secondsToDuration(cfg.ReconnectIntervalSeconds))
			metrics.SerialReconnects.Inc()
			continue
		}

		r.setState(models.SerialConnected)
		log.Info().Str("port", cfg.Port).Int("baud", cfg.BaudRate).Msg("serial port opened")
		err = r.readLoop(ctx, port, cfg)
		_ = port.Close()

		if ctx.Err() != nil {
			r.setState(models.SerialDisconnected)
			return ctx.Err()
		}
		if err != nil {
			r.errors.Add(1)
			metrics.SerialErrors.Inc()
			r.setState(models.SerialError)
			log.Warn().Err(err).Msg("serial read failed")
			r.waitForCommand(ctx, secondsToDuration(cfg.ReconnectIntervalSeconds))
			metrics.SerialReconnects.Inc()
		}
	}
}

func (r *SerialReader) String() string { return "serial-reader" }

// waitForCommand sleeps for d or until a control command or cancel
// arrives. Returns true when a command interrupted the wait.
func (r *SerialReader) waitForCommand(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-r.control:
		return true
	case <-timer.C:
		return false
	}
}

// readLoop reads the open port until an error, a control command, or
// cancellation. Returns nil when the loop should reopen without
// counting an error.
func (r *SerialReader) readLoop(ctx context.Context, port goserial.Port, cfg models.SerialConfig) error {
	if err := port.SetReadTimeout(secondsToDuration(cfg.TimeoutSeconds)); err != nil {
		return err
	}

	dec, peeking := r.newDecoder(cfg)
	var peekBuf []byte

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-r.control:
			if cmd.config != nil || cmd.restart {
				return nil
			}
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			// Read timeout. A stalled stream still resolves detection
			// with whatever was peeked so far.
			if peeking && len(peekBuf) > 0 {
				var data []byte
				dec, data = r.finishDetection(cfg, peekBuf)
				peekBuf = nil
				peeking = false
				r.deliverDecoded(dec.Feed(data))
			}
			continue
		}
		data := buf[:n]

		if peeking {
			peekBuf = append(peekBuf, data...)
			if len(peekBuf) < detectPeekSize {
				continue
			}
			dec, data = r.finishDetection(cfg, peekBuf)
			peekBuf = nil
			peeking = false
		}

		r.deliverDecoded(dec.Feed(data))
	}
}

func (r *SerialReader) deliverDecoded(frames []map[string]float64) {
	for _, channels := range frames {
		r.frames.Add(1)
		r.lastUnix.Store(time.Now().UnixNano())
		if r.sink != nil {
			r.sink.Deliver(models.SourceSerial, channels)
		}
	}
}

// newDecoder picks the decoder for an explicit format, or signals that
// auto-detection must buffer a peek first.
func (r *SerialReader) newDecoder(cfg models.SerialConfig) (decoder, bool) {
	switch cfg.DataFormat {
	case models.FormatCSV:
		r.setDetected(models.FormatCSV)
		return newCSVDecoder(cfg), false
	case models.FormatMotecBinary:
		r.setDetected(models.FormatMotecBinary)
		return newMotecDecoder(r.countError), false
	default:
		return nil, true
	}
}

// finishDetection resolves format auto-detection with the buffered peek
// and returns the decoder plus the peeked bytes to feed through it.
func (r *SerialReader) finishDetection(cfg models.SerialConfig, peek []byte) (decoder, []byte) {
	format := DetectFormat(peek)
	r.setDetected(format)
	logging.WithComponent("serial").Info().Str("format", format).Msg("serial format detected")
	if format == models.FormatCSV {
		return newCSVDecoder(cfg), peek
	}
	return newMotecDecoder(r.countError), peek
}

func (r *SerialReader) countError() {
	r.errors.Add(1)
	metrics.SerialErrors.Inc()
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

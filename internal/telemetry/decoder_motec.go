// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"encoding/binary"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// motecSync marks the start of a binary frame:
// sync, id uint16 LE, len uint8, payload, CRC-16/CCITT-FALSE uint16 LE
// over id+len+payload.
const motecSync = 0xAA

// motecEmitInterval is the minimum gap between emitted channel maps.
// CAN messages arrive much faster than the dashboard needs; signals
// accumulate between emits.
const motecEmitInterval = 100 * time.Millisecond

// motecSignal maps one int16 slot of a CAN payload onto a channel.
type motecSignal struct {
	channel string
	scale   float64
	offset  float64
}

// motecMessageMap assigns payload slots to channels per CAN id. Each
// payload holds consecutive int16 LE values in slot order.
var motecMessageMap = map[uint16][]motecSignal{
	0x5F0: {{channel: "rpm", scale: 1.0}, {channel: "throttle", scale: 0.1}},
	0x5F1: {{channel: "speed", scale: 0.1}, {channel: "brake_pressure", scale: 0.1}},
	0x5F2: {{channel: "coolant_temp", scale: 0.1, offset: -40}, {channel: "oil_temp", scale: 0.1, offset: -40}},
	0x5F3: {{channel: "intake_temp", scale: 0.1, offset: -40}, {channel: "exhaust_temp", scale: 1.0}},
	0x5F4: {{channel: "g_lateral", scale: 0.001}, {channel: "g_longitudinal", scale: 0.001}},
	0x5F5: {{channel: "wheel_fl", scale: 0.1}, {channel: "wheel_fr", scale: 0.1}},
	0x5F6: {{channel: "wheel_rl", scale: 0.1}, {channel: "wheel_rr", scale: 0.1}},
	0x5F7: {{channel: "battery_voltage", scale: 0.01}},
}

// motecDecoder parses the framed binary stream. Corrupt data costs one
// error count and a resync scan for the next sync byte; decoded signals
// accumulate and are emitted at most every motecEmitInterval.
type motecDecoder struct {
	buf      []byte
	pending  map[string]float64
	lastEmit time.Time
	onError  func()

	// now is swappable for tests.
	now func() time.Time
}

func newMotecDecoder(onError func()) *motecDecoder {
	return &motecDecoder{
		pending: map[string]float64{},
		onError: onError,
		now:     time.Now,
	}
}

func (d *motecDecoder) Feed(data []byte) []map[string]float64 {
	d.buf = append(d.buf, data...)

	var out []map[string]float64
	for {
		advanced := d.parseOne()
		if !advanced {
			break
		}
		if frame := d.maybeEmit(); frame != nil {
			out = append(out, frame)
		}
	}
	return out
}

// parseOne consumes at most one frame (or one junk byte) from the
// buffer. Returns false when more bytes are needed.
func (d *motecDecoder) parseOne() bool {
	// Scan to the next sync byte; everything before it is junk.
	start := 0
	for start < len(d.buf) && d.buf[start] != motecSync {
		start++
	}
	if start > 0 {
		d.buf = d.buf[start:]
	}

	// sync + id(2) + len(1) minimum header.
	if len(d.buf) < 4 {
		return false
	}
	payloadLen := int(d.buf[3])
	frameLen := 4 + payloadLen + 2
	if len(d.buf) < frameLen {
		return false
	}

	body := d.buf[1 : 4+payloadLen] // id + len + payload
	wantCRC := binary.LittleEndian.Uint16(d.buf[4+payloadLen : frameLen])
	if crc16CCITT(body) != wantCRC {
		metrics.RecordDecodeError(models.FormatMotecBinary)
		if d.onError != nil {
			d.onError()
		}
		// Drop the sync byte and rescan.
		d.buf = d.buf[1:]
		return true
	}

	id := binary.LittleEndian.Uint16(d.buf[1:3])
	d.decodePayload(id, d.buf[4:4+payloadLen])
	d.buf = d.buf[frameLen:]
	return true
}

func (d *motecDecoder) decodePayload(id uint16, payload []byte) {
	signals, ok := motecMessageMap[id]
	if !ok {
		return
	}
	for i, sig := range signals {
		off := i * 2
		if off+2 > len(payload) {
			break
		}
		raw := int16(binary.LittleEndian.Uint16(payload[off : off+2]))
		d.pending[sig.channel] = float64(raw)*sig.scale + sig.offset
	}
}

// maybeEmit returns the accumulated channels when the emit interval has
// passed, resetting the accumulator.
func (d *motecDecoder) maybeEmit() map[string]float64 {
	if len(d.pending) == 0 {
		return nil
	}
	now := d.now()
	if now.Sub(d.lastEmit) < motecEmitInterval {
		return nil
	}
	d.lastEmit = now
	frame := d.pending
	d.pending = map[string]float64{}
	return frame
}

// crc16CCITT computes CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no
// reflection, no final XOR.
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

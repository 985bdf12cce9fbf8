// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package telemetry

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// decoder turns raw serial bytes into channel maps. Feed may return any
// number of complete maps; partial data is buffered internally.
type decoder interface {
	Feed(data []byte) []map[string]float64
}

// csvDecoder pairs newline-terminated, separator-split values with the
// configured channel order by position.
type csvDecoder struct {
	order     []string
	separator string
	buf       []byte
}

func newCSVDecoder(cfg models.SerialConfig) *csvDecoder {
	sep := cfg.CSVSeparator
	if sep == "" {
		sep = ","
	}
	return &csvDecoder{order: cfg.CSVChannelOrder, separator: sep}
}

func (d *csvDecoder) Feed(data []byte) []map[string]float64 {
	d.buf = append(d.buf, data...)

	var out []map[string]float64
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]

		if channels := d.decodeLine(line); len(channels) > 0 {
			out = append(out, channels)
		}
	}
	return out
}

// decodeLine maps columns to channel ids positionally. Extra columns
// are ignored; columns that do not parse as numbers are omitted.
func (d *csvDecoder) decodeLine(line string) map[string]float64 {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil
	}

	cols := strings.Split(line, d.separator)
	channels := make(map[string]float64, len(d.order))
	for i, id := range d.order {
		if i >= len(cols) {
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[i]), 64)
		if err != nil {
			metrics.RecordDecodeError(models.FormatCSV)
			continue
		}
		channels[id] = v
	}
	return channels
}

// DetectFormat inspects up to the first 256 bytes of a stream and picks
// csv when at least 80% of the bytes are printable ASCII and a line
// terminator is present; otherwise motec_binary.
func DetectFormat(peek []byte) string {
	if len(peek) > 256 {
		peek = peek[:256]
	}
	if len(peek) == 0 {
		return models.FormatMotecBinary
	}

	printable := 0
	hasNewline := false
	for _, b := range peek {
		if b == '\n' || b == '\r' {
			hasNewline = true
		}
		if b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b < 0x7F) {
			printable++
		}
	}
	if hasNewline && float64(printable) >= 0.8*float64(len(peek)) {
		return models.FormatCSV
	}
	return models.FormatMotecBinary
}

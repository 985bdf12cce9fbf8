// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestInitAndLevels(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Str("k", "v").Msg("debug message")
	Info().Msg("info message")

	out := buf.String()
	if !strings.Contains(out, "debug message") {
		t.Errorf("expected debug output, got %q", out)
	}
	if !strings.Contains(out, "info message") {
		t.Errorf("expected info output, got %q", out)
	}
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("suppressed")
	Warn().Msg("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("info should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Errorf("warn should pass at warn level, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"ERROR", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestJSONOutputShape(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("component", "hub").Int("subscribers", 3).Msg("fan-out")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}

	if entry["message"] != "fan-out" {
		t.Errorf("message = %v, want fan-out", entry["message"])
	}
	if entry["component"] != "hub" {
		t.Errorf("component = %v, want hub", entry["component"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected time field in JSON output")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	// Both call shapes must work: chaining a level method directly on
	// the return value, and assigning the logger first.
	WithComponent("serial").Info().Msg("port opened")
	log := WithComponent("hub")
	log.Warn().Msg("subscriber queue full")

	if !strings.Contains(buf.String(), `"component":"serial"`) {
		t.Errorf("expected serial component field, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"component":"hub"`) {
		t.Errorf("expected hub component field, got %q", buf.String())
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty context should have no request ID, got %q", got)
	}

	ctx = ContextWithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("RequestIDFromContext = %q, want req-123", got)
	}
}

func TestCtxLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithRequestID(context.Background(), "req-abc")
	Ctx(ctx).Info().Msg("handled")

	if !strings.Contains(buf.String(), `"request_id":"req-abc"`) {
		t.Errorf("expected request_id field, got %q", buf.String())
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	if a == b {
		t.Error("consecutive request IDs should differ")
	}
	if len(a) != 36 {
		t.Errorf("request ID should be a UUID, got %q", a)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "***"},
		{"exactly12chr", "***"},
		{"eyJhbGciOiJIUzI1NiJ9", "eyJh...NiJ9"},
	}

	for _, c := range cases {
		if got := SanitizeToken(c.in); got != c.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeValue(t *testing.T) {
	t.Run("strips control characters", func(t *testing.T) {
		if got := SanitizeValue("user\nname\r\t"); got != "username" {
			t.Errorf("got %q, want username", got)
		}
	})

	t.Run("truncates long values", func(t *testing.T) {
		long := strings.Repeat("a", 150)
		got := SanitizeValue(long)
		if len(got) != 103 || !strings.HasSuffix(got, "...") {
			t.Errorf("expected 100 chars + ellipsis, got %d chars", len(got))
		}
	})

	t.Run("passes clean values through", func(t *testing.T) {
		if got := SanitizeValue("run_42.ldx"); got != "run_42.ldx" {
			t.Errorf("got %q", got)
		}
	})
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Service: "svc", Version: "v1.2.3"})
	l.Info().Msg("boot")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["service"] != "svc" {
		t.Errorf("service = %v, want svc", entry["service"])
	}
	if entry["version"] != "v1.2.3" {
		t.Errorf("version = %v, want v1.2.3", entry["version"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestParseLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	t.Setenv("LOG_LEVEL", "error")
	if got := ParseLevel(""); got != zerolog.ErrorLevel {
		t.Errorf("ParseLevel from env = %v, want error", got)
	}
}

func TestWithComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	mu.Lock()
	saved := base
	base = zerolog.New(&buf)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		base = saved
		mu.Unlock()
	})

	l := WithComponent("controller")
	l.Info().Msg("scan")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry[FieldComponent] != "controller" {
		t.Errorf("component = %v, want controller", entry[FieldComponent])
	}
}

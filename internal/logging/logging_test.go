package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"CRITICAL", zerolog.FatalLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"WARNING", zerolog.WarnLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{" Debug ", zerolog.DebugLevel, false},
		{"verbose", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "WARNING", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info().Msg("hidden")
	componentLogger := Component(logger, "coordinator")
	componentLogger.Warn().Str("file", "a.tgz").Msg("stalled")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["level"] != "warn" || record["component"] != "coordinator" || record["file"] != "a.tgz" {
		t.Errorf("unexpected record: %v", record)
	}
	if _, ok := record["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestCriticalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "CRITICAL", "console")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Error().Msg("filtered")
	Critical(logger).Msg("login timed out")

	out := buf.String()
	if !strings.Contains(out, "[CRITICAL]") || !strings.Contains(out, "login timed out") {
		t.Errorf("expected critical console line, got %q", out)
	}
	if strings.Contains(out, "filtered") {
		t.Errorf("error line should be filtered at CRITICAL, got %q", out)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", "console"); err == nil {
		t.Error("expected error for unknown level")
	}
}

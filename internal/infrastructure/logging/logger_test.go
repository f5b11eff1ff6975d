package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/itmuckel/ardour/internal/infrastructure/config"
)

func TestBuildAttachesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "2.1.0")

	log.Info("session loaded", "controls", 12)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["service"] != "ardour" {
		t.Errorf("service = %v, want ardour", entry["service"])
	}
	if entry["version"] != "2.1.0" {
		t.Errorf("version = %v, want 2.1.0", entry["version"])
	}
	if entry["msg"] != "session loaded" {
		t.Errorf("msg = %v, want 'session loaded'", entry["msg"])
	}
	if entry["controls"] != float64(12) {
		t.Errorf("controls = %v, want 12", entry["controls"])
	}
}

func TestBuildTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, config.LoggingConfig{Level: "info", Format: "text"}, "dev")

	log.Info("hello")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("text format produced JSON: %s", out)
	}
	if !strings.Contains(out, "service=ardour") {
		t.Errorf("output missing service field: %s", out)
	}
}

func TestBuildFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, config.LoggingConfig{Level: "warn", Format: "json"}, "dev")

	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line emitted at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn line missing at warn level")
	}
}

func TestWithAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "dev")

	log.With("component", "bridge").Info("started")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "bridge" {
		t.Errorf("component = %v, want bridge", entry["component"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}

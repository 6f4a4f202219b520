package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "debug", config: DebugConfig()},
		{name: "production", config: ProductionConfig()},
		{name: "bad level", config: &Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, wantError: true},
		{name: "bad format", config: &Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, wantError: true},
		{name: "file without path", config: &Config{Level: InfoLevel, Format: JSONFormat, Output: FileOutput}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestFieldsSurviveChaining(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, InfoLevel)

	log.WithComponent("resolver").WithField("line", 3).WithError(errors.New("boom")).Warn("approximate match")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["component"] != "resolver" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
	if entry["line"] != float64(3) {
		t.Errorf("expected line field 3, got %v", entry["line"])
	}
	if entry["error"] != "boom" {
		t.Errorf("expected error field, got %v", entry["error"])
	}
	if entry["level"] != "warning" {
		t.Errorf("expected warning level, got %v", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, WarnLevel)

	log.Info("hidden")
	log.Warnf("shown %d", 1)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "shown 1" {
		t.Errorf("expected only the warning, got %v", entries)
	}
}

func TestStageTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewStageTracker(NewWriterLogger(&buf, InfoLevel))

	tracker.Begin("parse")
	tracker.Done(4)
	tracker.Begin("resolve")
	tracker.Begin("split")
	tracker.Fail(errors.New("unbalanced"))

	durations := tracker.Durations()
	if len(durations) != 2 {
		t.Fatalf("expected 2 completed stages, got %d", len(durations))
	}
	if durations[0].Stage != "parse" || durations[1].Stage != "resolve" {
		t.Errorf("unexpected stage order: %+v", durations)
	}

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[0]["count"] != float64(4) {
		t.Errorf("expected count 4 on first stage, got %v", entries[0]["count"])
	}
	if _, ok := entries[1]["count"]; ok {
		t.Error("expected no count for implicitly closed stage")
	}
	if entries[2]["stage"] != "split" || entries[2]["level"] != "error" {
		t.Errorf("expected failed split stage, got %v", entries[2])
	}
}

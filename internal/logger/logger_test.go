package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	log.Debug("hidden")
	log.Info("chat joined", "chat_id", "c-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["chat_id"] != "c-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewConsoleWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "text")
	log.Warn("attachment skipped", "error", errors.New("disk full"))

	out := buf.String()
	if !strings.Contains(out, "attachment skipped") || !strings.Contains(out, "disk full") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no colour codes for non-tty writer: %q", out)
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithOptionsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Level: "debug", Format: "json", Out: &buf})

	l.Debug().Str("document_id", "doc-1").Msg("Session opened")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a JSON log line, got %q: %v", buf.String(), err)
	}
	for _, key := range []string{"level", "message", "document_id", "pid", "go_version", "git_revision", "time"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("Expected field %q in %v", key, entry)
		}
	}
	if entry["message"] != "Session opened" {
		t.Errorf("Expected message 'Session opened', got %v", entry["message"])
	}
}

func TestNewWithOptionsLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := NewWithOptions(Options{Level: tt.level, Format: "json", Out: &buf})
		if got := l.GetLevel(); got != tt.want {
			t.Errorf("level %q: got %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Level: "info", Out: &buf})

	l.Info().Msg("Server started")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("Expected console output, got JSON: %q", out)
	}
	if !strings.Contains(out, "Server started") {
		t.Errorf("Expected message in output, got %q", out)
	}
}

package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologLevel(t *testing.T) {
	tests := []struct {
		level int
		want  zerolog.Level
	}{
		{-1, zerolog.ErrorLevel},
		{0, zerolog.ErrorLevel},
		{1, zerolog.WarnLevel},
		{2, zerolog.InfoLevel},
		{3, zerolog.DebugLevel},
		{9, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		if got := zerologLevel(tt.level); got != tt.want {
			t.Errorf("zerologLevel(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNewLoggerStructured(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: 2, Structured: true, Output: &buf})

	logger.Info().Str("source", "arxiv").Msg("search complete")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("structured output is not JSON: %v\noutput: %s", err, buf.String())
	}
	if entry["source"] != "arxiv" {
		t.Errorf("source field = %v, want arxiv", entry["source"])
	}
	if entry["message"] != "search complete" {
		t.Errorf("message field = %v", entry["message"])
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: 0, Structured: true, Output: &buf})

	logger.Info().Msg("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("info logged at error level: %s", buf.String())
	}

	logger.Error().Msg("should appear")
	if buf.Len() == 0 {
		t.Error("error message suppressed")
	}
}

func TestEmoji(t *testing.T) {
	plain := LoggerConfig{}
	if got := plain.Emoji("x"); got != "x" {
		t.Errorf("Emoji with defaults = %q, want %q", got, "x")
	}

	noEmoji := LoggerConfig{NoEmoji: true}
	if got := noEmoji.Emoji("x"); got != "" {
		t.Errorf("Emoji with NoEmoji = %q, want empty", got)
	}

	structured := LoggerConfig{Structured: true}
	if got := structured.Emoji("x"); got != "" {
		t.Errorf("Emoji with Structured = %q, want empty", got)
	}
}

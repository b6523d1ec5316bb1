package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wonny/instflow/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	return entry
}

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"}, &buf)
			if log == nil {
				t.Fatal("Expected logger to be created")
			}
			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestJSONOutputCarriesEnv(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "staging", LogLevel: "debug", LogFormat: "json"}, &buf)

	log.Infof("processed %d files", 61)

	entry := decode(t, &buf)
	if entry["env"] != "staging" {
		t.Errorf("Expected env staging, got %v", entry["env"])
	}
	if entry["message"] != "processed 61 files" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %v", entry["level"])
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: "console"}, &buf)

	log.Warn("skipped unreadable day file")

	if !strings.Contains(buf.String(), "skipped unreadable day file") {
		t.Errorf("Expected console output to contain message, got: %s", buf.String())
	}
}

func TestComponentAndFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := &Logger{zlog: zerolog.New(&buf)}

	log.Component("ranker").
		WithFields(map[string]interface{}{"market": "TSE", "buy": 100}).
		WithField("date", "2024-07-10").
		Debug("rank extracted")

	entry := decode(t, &buf)
	if entry["component"] != "ranker" {
		t.Errorf("Expected component ranker, got %v", entry["component"])
	}
	if entry["market"] != "TSE" {
		t.Errorf("Expected market TSE, got %v", entry["market"])
	}
	if entry["buy"] != float64(100) {
		t.Errorf("Expected buy 100, got %v", entry["buy"])
	}
	if entry["date"] != "2024-07-10" {
		t.Errorf("Expected date field, got %v", entry["date"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithError(errors.New("decode cp950: invalid byte")).Error("day file skipped")

	entry := decode(t, &buf)
	if entry["error"] != "decode cp950: invalid byte" {
		t.Errorf("Unexpected error field %v", entry["error"])
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("nothing")
	log.WithField("k", "v").Error("nothing")
}

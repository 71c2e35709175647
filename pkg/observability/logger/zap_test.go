package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware"
)

func newBufferedLogger(t *testing.T, level LogLevel) (*ZapLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log, err := NewZapLogger(Config{Level: level, Format: JSONFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}
	return log, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q (%v)", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		logFunc  func(Logger)
		expected bool
	}{
		{"debug level logs debug", DebugLevel, func(l Logger) { l.Debug("m") }, true},
		{"info level drops debug", InfoLevel, func(l Logger) { l.Debug("m") }, false},
		{"info level logs info", InfoLevel, func(l Logger) { l.Info("m") }, true},
		{"warn level drops info", WarnLevel, func(l Logger) { l.Info("m") }, false},
		{"warn level logs warn", WarnLevel, func(l Logger) { l.Warn("m") }, true},
		{"error level drops warn", ErrorLevel, func(l Logger) { l.Warn("m") }, false},
		{"error level logs error", ErrorLevel, func(l Logger) { l.Error("m") }, true},
		{"invalid level behaves as info", "bogus", func(l Logger) { l.Debug("m") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newBufferedLogger(t, tt.level)
			tt.logFunc(log)
			_ = log.Sync()

			if got := buf.Len() > 0; got != tt.expected {
				t.Errorf("output written = %v, want %v (%q)", got, tt.expected, buf.String())
			}
		})
	}
}

func TestZapLogger_StructuredFields(t *testing.T) {
	log, buf := newBufferedLogger(t, InfoLevel)

	log.With("collection", "anime").Info("document inserted", "id", "abc", "count", 2)
	_ = log.Sync()

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["message"] != "document inserted" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["collection"] != "anime" || entry["id"] != "abc" {
		t.Errorf("missing structured fields: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestZapLogger_WithContextAddsRequestID(t *testing.T) {
	log, buf := newBufferedLogger(t, InfoLevel)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("untagged")
	_ = log.Sync()

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", entries[0]["request_id"])
	}
	if _, ok := entries[1]["request_id"]; ok {
		t.Errorf("unexpected request_id on untagged entry: %v", entries[1])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"trace", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	if f, err := ParseLogFormat("console"); err != nil || f != TextFormat {
		t.Errorf("ParseLogFormat(console) = %q, %v", f, err)
	}
	if f, err := ParseLogFormat("json"); err != nil || f != JSONFormat {
		t.Errorf("ParseLogFormat(json) = %q, %v", f, err)
	}
	if _, err := ParseLogFormat("xml"); err == nil {
		t.Error("expected error for xml format")
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("ignored", "k", "v")
	if log.With("a", 1) == nil || log.WithContext(context.Background()) == nil {
		t.Fatal("nop logger must return itself")
	}
}

// Every JSON entry carries timestamp, level and message whatever the message text is.
func TestProperty_JSONEntriesCarryRequiredKeys(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("entries are valid JSON with required keys", prop.ForAll(
		func(message string) bool {
			var buf bytes.Buffer
			log, err := NewZapLogger(Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})
			if err != nil {
				return false
			}
			log.Warn(message)
			_ = log.Sync()

			entry := map[string]any{}
			if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
				return false
			}
			_, hasTS := entry["timestamp"]
			return hasTS && entry["level"] == "warn" && entry["message"] == message
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

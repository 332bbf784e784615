package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{" DEBUG ", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.1", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, errors.New("boom"))

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Level != "WARN" {
		t.Errorf("first level = %v, want WARN", entries[0].Level)
	}
	if entries[1].Error != "boom" {
		t.Errorf("error = %q, want %q", entries[1].Error, "boom")
	}
	if entries[1].Function == "" {
		t.Error("error entries should carry caller information")
	}
}

func TestStructuredLogger_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.1", InfoLevel)
	logger.SetOutput(&buf)

	ctx := WithRequestID(context.Background(), "run-42")
	logger.Info(ctx, "[TEST] hello", Fields{"k": "v"})

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].RequestID != "run-42" {
		t.Errorf("RequestID = %q, want %q", entries[0].RequestID, "run-42")
	}
	if entries[0].Service != "test" {
		t.Errorf("Service = %q, want %q", entries[0].Service, "test")
	}
}

func TestContextLogger_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.1", DebugLevel)
	logger.SetOutput(&buf)

	fileLogger := logger.WithFields(Fields{"file": "a.csv", "stage": "base"})
	fileLogger.Info(context.Background(), "[TEST] merged", Fields{"stage": "override", "rows": 3})

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	f := entries[0].Fields
	if f["file"] != "a.csv" {
		t.Errorf("file = %v, want a.csv", f["file"])
	}
	if f["stage"] != "override" {
		t.Errorf("stage = %v, want override", f["stage"])
	}
	if f["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", f["rows"])
	}
}

func TestStructuredLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("test", "0.0.1", InfoLevel)
	logger.SetOutput(&buf)
	logger.SetFormat(ParseFormat("TEXT"))

	ctx := WithRequestID(context.Background(), "run-7")
	logger.Error(ctx, "[TEST] failed", Fields{"rows": 3, "file": "a.csv"}, errors.New("boom"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "ERROR [TEST] failed file=a.csv rows=3 request_id=run-7") {
		t.Errorf("line = %q", line)
	}
	if !strings.HasSuffix(line, `error="boom"`) {
		t.Errorf("line = %q, want trailing error", line)
	}
	if strings.HasPrefix(line, "{") {
		t.Error("text format should not write JSON")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"text", TextFormat},
		{" Text ", TextFormat},
		{"json", JSONFormat},
		{"", JSONFormat},
		{"yaml", JSONFormat},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoggerWritesJSONObjectField(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)

	log.InfoObj("presentation request sent", "presentation_request", map[string]any{"said": "S1"})
	_ = log.Close()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "presentation request sent" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
	field, ok := entry["presentation_request"].(map[string]any)
	if !ok || field["said"] != "S1" {
		t.Fatalf("unexpected object field %v", entry["presentation_request"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("error", &buf)

	log.InfoObj("hidden", "k", 1)
	log.DebugObj("hidden", "k", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below error level, got %q", buf.String())
	}
	log.ErrorObj("shown", "k", 1)
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected error entry, got %q", buf.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := ParseLevel("verbose"); got != zapcore.InfoLevel {
		t.Fatalf("expected info, got %v", got)
	}
	if got := ParseLevel("warning"); got != zapcore.WarnLevel {
		t.Fatalf("expected warn, got %v", got)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *ZapLogger
	log.InfoObj("x", "k", 1)
	if err := log.Close(); err != nil {
		t.Fatalf("Close on nil logger: %v", err)
	}
}

var (
	_ Logger = (*ZapLogger)(nil)
	_ Logger = NopLogger{}
)

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "info", "json")

	l.emit(InfoLevel, "processed %d trades", 42)

	var entry map[string]string
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %q, want INFO", entry["level"])
	}
	if entry["msg"] != "processed 42 trades" {
		t.Errorf("msg = %q, want %q", entry["msg"], "processed 42 trades")
	}
	if entry["ts"] == "" {
		t.Error("missing ts field")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "debug", "text")

	l.emit(WarnLevel, "slow cycle: %s", "12s")

	out := buf.String()
	if !strings.Contains(out, "[WARN] slow cycle: 12s") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json")

	l.emit(DebugLevel, "dropped")
	l.emit(InfoLevel, "dropped")
	if buf.Len() != 0 {
		t.Errorf("below-threshold messages were emitted: %s", buf.String())
	}

	l.emit(ErrorLevel, "kept")
	if buf.Len() == 0 {
		t.Error("error message was filtered out")
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "chatty", "json")

	l.emit(DebugLevel, "dropped")
	if buf.Len() != 0 {
		t.Error("debug emitted at default info level")
	}
	l.emit(InfoLevel, "kept")
	if buf.Len() == 0 {
		t.Error("info message was filtered out")
	}
}

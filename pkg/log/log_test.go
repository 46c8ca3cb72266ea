package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextFormatterFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(DebugLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Info("hello", Str("b", "2"), Str("a", "1"))
	out := buf.String()
	if !strings.Contains(out, "INFO hello") {
		t.Fatalf("missing level/message: %q", out)
	}
	if strings.Index(out, "a=1") > strings.Index(out, "b=2") {
		t.Fatalf("fields not sorted: %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(DebugLevel), WithFormatter(&JSONFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.With(Component("commitlog")).Warn("slow fsync", Int64("dur_ms", 12))
	var obj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("invalid json: %v (%q)", err, buf.String())
	}
	if obj["level"] != "WARN" || obj["msg"] != "slow fsync" {
		t.Fatalf("unexpected entry: %v", obj)
	}
	if obj["component"] != "commitlog" {
		t.Fatalf("missing derived field: %v", obj)
	}
}

func TestLevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithOutput(NewWriterOutput(&buf)))
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info below warn to be dropped: %q", buf.String())
	}
	l.Error("kept")
	if buf.Len() == 0 {
		t.Fatalf("expected error to be written")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": DebugLevel, "INFO": InfoLevel, "Warn": WarnLevel, "error": ErrorLevel}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"duel-arena/server/logging"
)

func TestJSONSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	event := logging.Event{
		Type:     "match.rollback",
		Tick:     105,
		Time:     time.Unix(0, 0).UTC(),
		Severity: logging.SeverityWarn,
		Actor:    logging.EntityRef{ID: "2", Kind: logging.EntityKindPlayer},
		Payload:  map[string]int{"target": 100},
	}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "match.rollback" || decoded["severity"] != "warn" {
		t.Fatalf("unexpected wire record %+v", decoded)
	}
}

func TestConsoleSinkFormatsTargets(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	event := logging.Event{
		Type:    "match.hit",
		Tick:    3,
		Actor:   logging.EntityRef{ID: "1", Kind: logging.EntityKindHAR},
		Targets: []logging.EntityRef{{ID: "2", Kind: logging.EntityKindHAR}},
	}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[match.hit] tick=3 debug actor=har:1 targets=har:2") {
		t.Fatalf("unexpected console output %q", out)
	}
}

func TestMemorySinkFiltersByType(t *testing.T) {
	sink := NewMemory()
	sink.Publish(context.Background(), logging.Event{Type: "a"})
	sink.Publish(context.Background(), logging.Event{Type: "b"})
	sink.Publish(context.Background(), logging.Event{Type: "a"})
	if got := len(sink.OfType("a")); got != 2 {
		t.Fatalf("expected 2 events of type a, got %d", got)
	}
	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected reset to clear events, got %d", got)
	}
}

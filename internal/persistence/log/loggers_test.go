package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"driftbase.gg/internal/protocol"
)

func readEvents(t *testing.T, path string) []protocol.Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []protocol.Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var ev protocol.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestAuditLogger_WritesStampedJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	l.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}

	if err := l.WriteEvent(protocol.Event{"type": "TRADE_BUY", "profile": "s1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.WriteEvent(protocol.Event{"type": "RAGFAIR_ADD", "price": 12000}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "audit", "audit-2026-03-14.jsonl.zst"))
	if len(events) != 2 {
		t.Fatalf("events: got %d want 2", len(events))
	}
	if events[0]["type"] != "TRADE_BUY" {
		t.Fatalf("first event: got %v", events[0]["type"])
	}
	if _, ok := events[0]["ts"]; !ok {
		t.Fatalf("event not timestamped")
	}
	if events[1]["price"] != float64(12000) {
		t.Fatalf("price round-trip: got %v", events[1]["price"])
	}
}

func TestAuditLogger_RotatesPerDay(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)

	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return day }
	if err := l.WriteEvent(protocol.Event{"type": "A"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	day = day.Add(2 * time.Minute) // crosses UTC midnight
	if err := l.WriteEvent(protocol.Event{"type": "B"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readEvents(t, filepath.Join(dir, "audit", "audit-2026-03-14.jsonl.zst"))
	second := readEvents(t, filepath.Join(dir, "audit", "audit-2026-03-15.jsonl.zst"))
	if len(first) != 1 || first[0]["type"] != "A" {
		t.Fatalf("first day: got %v", first)
	}
	if len(second) != 1 || second[0]["type"] != "B" {
		t.Fatalf("second day: got %v", second)
	}
}

func TestAuditLogger_KeepsCallerTimestamp(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	l.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}

	if err := l.WriteEvent(protocol.Event{"type": "A", "ts": "caller-said-so"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "audit", "audit-2026-03-14.jsonl.zst"))
	if events[0]["ts"] != "caller-said-so" {
		t.Fatalf("ts overwritten: got %v", events[0]["ts"])
	}
}

// Package log holds the durable audit trail: every engine-side mutation
// (production starts, trades, flea sales) appended as zstd-compressed JSONL,
// one file per UTC day.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"driftbase.gg/internal/protocol"
)

type AuditLogger struct {
	dir string

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	buf    *bufio.Writer

	// Injectable for rotation tests.
	now func() time.Time
}

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{
		dir: filepath.Join(dataDir, "audit"),
		now: time.Now,
	}
}

// WriteEvent stamps and appends one event. The flush per event keeps the
// trail usable after a crash; zstd soaks up the resulting small writes.
func (l *AuditLogger) WriteEvent(ev protocol.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	if day := ts.Format("2006-01-02"); day != l.curDay {
		if err := l.rotateLocked(day); err != nil {
			return err
		}
	}

	if _, ok := ev["ts"]; !ok {
		ev["ts"] = ts.Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := l.buf.Write(b); err != nil {
		return err
	}
	if err := l.buf.WriteByte('\n'); err != nil {
		return err
	}
	return l.buf.Flush()
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *AuditLogger) rotateLocked(day string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.dir, fmt.Sprintf("audit-%s.jsonl.zst", day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.buf = bufio.NewWriterSize(enc, 64*1024)
	l.curDay = day
	return nil
}

func (l *AuditLogger) closeLocked() error {
	var encErr error
	if l.buf != nil {
		_ = l.buf.Flush()
		l.buf = nil
	}
	if l.enc != nil {
		encErr = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	return encErr
}

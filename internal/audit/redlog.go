// Package audit writes the redacted event log: an append-only text file
// next to the database that records every inbound and outbound message
// with secrets masked. The structured audit trail lives in the store; this
// file is the greppable companion.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/haasonsaas/nexus-core/internal/redact"
)

// Log appends masked event lines to a single file.
type Log struct {
	mu       sync.Mutex
	path     string
	redactor *redact.Redactor
	now      func() time.Time
}

// NewLog creates a log writing to path. The file is created on first write.
func NewLog(path string, redactor *redact.Redactor) *Log {
	return &Log{path: path, redactor: redactor, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (l *Log) SetClock(now func() time.Time) { l.now = now }

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Write appends one event line. The payload is JSON-encoded and the whole
// line passes through the redactor before it touches disk.
func (l *Log) Write(event string, payload map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(map[string]any{"serialization_error": err.Error()})
	}

	line := fmt.Sprintf("%s event=%s payload=%s\n",
		l.now().UTC().Format(time.RFC3339Nano), event, string(data))
	if l.redactor != nil {
		line = l.redactor.Mask(line)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening redacted log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending redacted log: %w", err)
	}
	return nil
}

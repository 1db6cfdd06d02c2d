package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pydojo.log")
	l, err := NewLogger(path, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Info("runtime.bootstrap.done", map[string]any{"engine": "starlark", "attempt": 1})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(b))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if entry["msg"] != "runtime.bootstrap.done" {
		t.Fatalf("unexpected msg: %#v", entry)
	}
	if entry["engine"] != "starlark" {
		t.Fatalf("missing engine field: %#v", entry)
	}
}

func TestNilAndNopLoggersDiscard(t *testing.T) {
	var l *Logger
	l.Info("ignored", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	Nop().Error("ignored", map[string]any{"k": "v"})
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "pydojo", log.WarnLevel)
	l.Info("quiet", nil)
	l.Warn("loud", map[string]any{"lesson": "l1-t1"})
	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "l1-t1") {
		t.Fatalf("warn line missing: %q", out)
	}
}

package telemetry

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
)

// Logger writes structured events to a JSON log file. A nil *Logger and a
// Logger built with an empty path discard everything.
type Logger struct {
	l *log.Logger
	w io.WriteCloser
}

func NewLogger(path string, level string) (*Logger, error) {
	if path == "" {
		return Nop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l := log.NewWithOptions(f, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Formatter:       log.JSONFormatter,
	})
	return &Logger{l: l, w: f}, nil
}

// NewWriterLogger logs text lines to w. Used by the CLI for --verbose output.
func NewWriterLogger(w io.Writer, prefix string, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{Prefix: prefix, Level: level})
	return &Logger{l: l, w: nopCloser{Writer: w}}
}

func Nop() *Logger {
	return &Logger{l: log.NewWithOptions(io.Discard, log.Options{}), w: nopCloser{Writer: io.Discard}}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Debug(msg, keyvals(fields)...)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Info(msg, keyvals(fields)...)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Warn(msg, keyvals(fields)...)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Error(msg, keyvals(fields)...)
}

func (l *Logger) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

func keyvals(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Package logging provides leveled logging and generation tracing for socialgen.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for structured JSONL generation traces (generation.jsonl)
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// LevelTrace is a custom slog level below Debug for per-user detail.
// At this level every degree draw and post count is logged to stderr too.
const LevelTrace = slog.LevelDebug - 4

// TraceFileName is the name of the JSONL trace written next to the dataset.
const TraceFileName = "generation.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Useful as a default.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TraceLogger writes structured generation events to a JSONL file, one
// line per decision (degree clamp, post count, post id range).
// It is safe for concurrent use. A nil TraceLogger is safe to use;
// all methods are no-ops on nil receiver.
type TraceLogger struct {
	mu   sync.Mutex
	file *os.File
	seq  int
}

// NewTraceLogger creates a trace logger writing to dir/generation.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is truncated so it describes one run.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, TraceFileName)
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{file: f}
}

// Log writes one event as a single JSONL line. An "event" field and a
// monotonically increasing "seq" field are added; no wall-clock time is
// recorded so traces of seeded runs are comparable. The caller's map is
// not mutated. Safe to call on nil receiver.
func (tl *TraceLogger) Log(event string, fields map[string]any) {
	if tl == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = event

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file == nil {
		return
	}

	entry["seq"] = tl.seq
	tl.seq++

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file == nil {
		return
	}
	tl.file.Close()
	tl.file = nil
}

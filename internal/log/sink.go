package log

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a progress report.
type Level int

// Progress levels.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelSuccess
)

// slogLevelSuccess sits between Info and Warn so SUCCESS lines are shown
// at the default threshold without being treated as warnings.
const slogLevelSuccess = slog.LevelInfo + 2

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// SlogLevel maps l onto a slog level.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelSuccess:
		return slogLevelSuccess
	default:
		return slog.LevelInfo
	}
}

// Sink receives every progress report of the crawl engine.
// args are slog-style key/value pairs giving context (url, attempt, kind).
// Implementations must be safe for concurrent use.
type Sink interface {
	Report(message string, level Level, args ...any)
}

// SlogSink forwards reports to an slog.Logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink writing to logger, or slog.Default() when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Report implements Sink.
func (s *SlogSink) Report(message string, level Level, args ...any) {
	s.logger.Log(context.Background(), level.SlogLevel(), message, args...)
}

// With returns a sink whose reports carry args.
func (s *SlogSink) With(args ...any) *SlogSink {
	return &SlogSink{logger: s.logger.With(args...)}
}

// FuncSink adapts a function to Sink.
type FuncSink func(message string, level Level, args ...any)

// Report implements Sink.
func (f FuncSink) Report(message string, level Level, args ...any) {
	f(message, level, args...)
}

// Discard is a Sink that drops everything.
var Discard Sink = FuncSink(func(string, Level, ...any) {})

// MultiSink fans a report out to several sinks in order.
type MultiSink []Sink

// Report implements Sink.
func (m MultiSink) Report(message string, level Level, args ...any) {
	for _, s := range m {
		s.Report(message, level, args...)
	}
}

// Entry is one report captured by a Recorder.
type Entry struct {
	Message string
	Level   Level
	Args    []any
}

// Recorder is a Sink that keeps every report in memory.
// It is used by tests and by the CLI to count warnings.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Report implements Sink.
func (r *Recorder) Report(message string, level Level, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Message: message, Level: level, Args: args})
}

// Entries returns a copy of the recorded reports.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns the number of reports at level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

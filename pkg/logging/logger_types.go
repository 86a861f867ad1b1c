package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	// DebugLevel carries per-step and per-batch detail; off by default.
	DebugLevel Level = iota
	// InfoLevel is the default: generation and run milestones.
	InfoLevel
	// WarnLevel flags skipped input such as malformed interconnects.
	WarnLevel
	// ErrorLevel is reserved for failures surfaced to the caller.
	ErrorLevel
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level. Unrecognised names yield InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logging interface used across the engine.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that always includes fields.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per line.
type JSONLogger struct {
	out    io.Writer
	level  *levelVar
	fields []Field
	mu     *sync.Mutex
}

// levelVar is shared between a logger and its children so SetLevel on the
// root applies everywhere.
type levelVar struct {
	mu    sync.RWMutex
	level Level
}

func (v *levelVar) get() Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.level
}

func (v *levelVar) set(l Level) {
	v.mu.Lock()
	v.level = l
	v.mu.Unlock()
}

// LogEntry is the serialized shape of a log line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything. Handy in tests and for library defaults.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field)  {}
func (NopLogger) Info(string, ...Field)   {}
func (NopLogger) Warn(string, ...Field)   {}
func (NopLogger) Error(string, ...Field)  {}
func (n NopLogger) With(...Field) Logger  { return n }
func (NopLogger) SetLevel(Level)          {}
func (NopLogger) GetLevel() Level         { return InfoLevel }

// NewNopLogger returns a Logger that discards all output.
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation measures the duration of one operation.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// NewJSONLogger creates a logger writing JSON lines to w at or above level.
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   w,
		level: &levelVar{level: level},
		mu:    &sync.Mutex{},
	}
}

// NewDefaultLogger creates an INFO logger on stderr.
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stderr, InfoLevel)
}

func (l *JSONLogger) write(level Level, msg string, fields []Field) {
	if level < l.level.get() {
		return
	}

	entry := LogEntry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		entry.Fields = make(map[string]any, n)
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"unencodable log entry","error":%q}`, err.Error()))
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(data)
}

// Debug logs at DebugLevel.
func (l *JSONLogger) Debug(msg string, fields ...Field) { l.write(DebugLevel, msg, fields) }

// Info logs at InfoLevel.
func (l *JSONLogger) Info(msg string, fields ...Field) { l.write(InfoLevel, msg, fields) }

// Warn logs at WarnLevel.
func (l *JSONLogger) Warn(msg string, fields ...Field) { l.write(WarnLevel, msg, fields) }

// Error logs at ErrorLevel.
func (l *JSONLogger) Error(msg string, fields ...Field) { l.write(ErrorLevel, msg, fields) }

// With returns a child sharing the writer, lock and level of l.
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{
		out:    l.out,
		level:  l.level,
		fields: merged,
		mu:     l.mu,
	}
}

// SetLevel changes the minimum level for l and every logger derived from it.
func (l *JSONLogger) SetLevel(level Level) { l.level.set(level) }

// GetLevel returns the minimum level.
func (l *JSONLogger) GetLevel() Level { return l.level.get() }

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
	defaultOnce   sync.Once
)

// DefaultLogger returns the process-wide logger. Its level comes from LOG_LEVEL.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultLogger == nil {
			defaultLogger = NewJSONLogger(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
		}
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger.
func SetDefaultLogger(logger Logger) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// OrDefault returns logger, or the process-wide logger when logger is nil.
func OrDefault(logger Logger) Logger {
	if logger == nil {
		return DefaultLogger()
	}
	return logger
}

// Info logs through the default logger.
func Info(msg string, fields ...Field) { DefaultLogger().Info(msg, fields...) }

// Warn logs through the default logger.
func Warn(msg string, fields ...Field) { DefaultLogger().Warn(msg, fields...) }

// Debug logs through the default logger.
func Debug(msg string, fields ...Field) { DefaultLogger().Debug(msg, fields...) }

// StartTimer begins timing an operation logged at INFO by End.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since the timer started.
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation with its elapsed time.
func (t *TimedOperation) End(extra ...Field) time.Duration {
	elapsed := time.Since(t.start)
	fields := make([]Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	fields = append(fields, Elapsed(elapsed))
	t.logger.Info(t.msg, fields...)
	return elapsed
}

// EndError logs the operation as failed.
func (t *TimedOperation) EndError(err error) {
	elapsed := time.Since(t.start)
	fields := make([]Field, 0, len(t.fields)+2)
	fields = append(fields, t.fields...)
	fields = append(fields, Elapsed(elapsed), Error(err))
	t.logger.Error(t.msg, fields...)
}

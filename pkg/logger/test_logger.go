package logger

import (
	"context"
	"sync"
)

// LogEntry is a single message captured by TestLogger
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// TestLogger captures log entries in memory for assertions in tests
type TestLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	fields  map[string]interface{}
}

// NewTestLogger creates an empty TestLogger
func NewTestLogger() *TestLogger {
	return &TestLogger{
		mu:      &sync.Mutex{},
		entries: &[]LogEntry{},
		fields:  map[string]interface{}{},
	}
}

func (t *TestLogger) record(level, msg string, extra map[string]interface{}) {
	fields := make(map[string]interface{}, len(t.fields)+len(extra))
	for k, v := range t.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	*t.entries = append(*t.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (t *TestLogger) Debug(msg string) { t.record("debug", msg, nil) }
func (t *TestLogger) Info(msg string)  { t.record("info", msg, nil) }
func (t *TestLogger) Warn(msg string)  { t.record("warn", msg, nil) }
func (t *TestLogger) Error(msg string) { t.record("error", msg, nil) }

func (t *TestLogger) DebugWithFields(msg string, f map[string]interface{}) {
	t.record("debug", msg, f)
}
func (t *TestLogger) InfoWithFields(msg string, f map[string]interface{}) {
	t.record("info", msg, f)
}
func (t *TestLogger) WarnWithFields(msg string, f map[string]interface{}) {
	t.record("warn", msg, f)
}
func (t *TestLogger) ErrorWithFields(msg string, f map[string]interface{}) {
	t.record("error", msg, f)
}

func (t *TestLogger) WithField(key string, value interface{}) Logger {
	return t.WithFields(map[string]interface{}{key: value})
}

func (t *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(t.fields)+len(fields))
	for k, v := range t.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{mu: t.mu, entries: t.entries, fields: merged}
}

func (t *TestLogger) WithError(err error) Logger {
	if err == nil {
		return t
	}
	return t.WithField("error", err.Error())
}

func (t *TestLogger) WithContext(ctx context.Context) Logger { return t }

// Entries returns a copy of everything logged so far, including by children
func (t *TestLogger) Entries() []LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LogEntry, len(*t.entries))
	copy(out, *t.entries)
	return out
}

// Contains reports whether any entry at level has the given message
func (t *TestLogger) Contains(level, msg string) bool {
	for _, e := range t.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
func (n nopLogger) WithContext(context.Context) Logger           { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}

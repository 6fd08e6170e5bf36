package testutils

import "sync"

// TestingT is the subset of testing.T these helpers need
type TestingT interface {
	Errorf(format string, args ...any)
}

// LogEntry is one captured log call
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// CapturingLogger implements the logging.Logger interface and records every
// call for assertion in tests. Safe for concurrent use.
type CapturingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewCapturingLogger creates an empty capturing logger
func NewCapturingLogger() *CapturingLogger {
	return &CapturingLogger{}
}

func (l *CapturingLogger) capture(level, msg string, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  pairsToMap(fields),
	})
}

func (l *CapturingLogger) Debug(msg string, fields ...any) { l.capture("DEBUG", msg, fields) }
func (l *CapturingLogger) Info(msg string, fields ...any)  { l.capture("INFO", msg, fields) }
func (l *CapturingLogger) Warn(msg string, fields ...any)  { l.capture("WARN", msg, fields) }
func (l *CapturingLogger) Error(msg string, fields ...any) { l.capture("ERROR", msg, fields) }

// Entries returns a copy of everything captured so far
func (l *CapturingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Contains reports whether a call with the given level and message was
// captured.
func (l *CapturingLogger) Contains(level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

// FieldsToMap converts alternating key-value pairs to a map, reporting
// malformed slices through t. Used by logging assertions.
func FieldsToMap(t TestingT, fields []any) map[string]any {
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			t.Errorf("malformed fields slice: missing value for key at index %d", i)
		} else if _, ok := fields[i].(string); !ok {
			t.Errorf("malformed fields slice: key at index %d is %T, not a string", i, fields[i])
		}
	}
	return pairsToMap(fields)
}

func pairsToMap(fields []any) map[string]any {
	out := make(map[string]any)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			out[key] = fields[i+1]
		}
	}
	return out
}

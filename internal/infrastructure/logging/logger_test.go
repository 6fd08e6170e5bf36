package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"
)

// captureOutput redirects the standard log output for the duration of fn
// and returns everything written to it.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	var buf bytes.Buffer
	prevWriter := log.Writer()
	prevFlags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prevWriter)
		log.SetFlags(prevFlags)
	}()

	fn()
	return buf.String()
}

func TestDefaultLogger_StructuredOutput(t *testing.T) {
	logger := NewDefaultLogger()

	out := captureOutput(t, func() {
		logger.Info("session closed", "app_id", "com.example.social", "minutes", 42)
	})

	var entry logEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", out, err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "session closed" {
		t.Errorf("Expected message 'session closed', got %s", entry.Message)
	}
	if entry.Fields["app_id"] != "com.example.social" {
		t.Errorf("Expected app_id field, got %v", entry.Fields["app_id"])
	}
}

func TestDefaultLogger_Levels(t *testing.T) {
	logger := NewDefaultLogger()

	tests := []struct {
		name  string
		logFn func(msg string, fields ...interface{})
		level string
	}{
		{"debug", logger.Debug, "DEBUG"},
		{"info", logger.Info, "INFO"},
		{"warn", logger.Warn, "WARN"},
		{"error", logger.Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, func() {
				tt.logFn("message")
			})
			if !strings.Contains(out, `"level":"`+tt.level+`"`) {
				t.Errorf("Expected level %s in output %q", tt.level, out)
			}
		})
	}
}

func TestFieldsToMap(t *testing.T) {
	tests := []struct {
		name   string
		fields []interface{}
		want   map[string]interface{}
	}{
		{
			name:   "pairs",
			fields: []interface{}{"a", 1, "b", "two"},
			want:   map[string]interface{}{"a": 1, "b": "two"},
		},
		{
			name:   "odd trailing field",
			fields: []interface{}{"a", 1, "orphan"},
			want:   map[string]interface{}{"a": 1, "field_1": "orphan"},
		},
		{
			name:   "non-string key",
			fields: []interface{}{42, "value"},
			want:   map[string]interface{}{"field_0": 42, "field_0_value": "value"},
		},
		{
			name:   "empty",
			fields: nil,
			want:   map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldsToMap(tt.fields)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d entries, got %d: %v", len(tt.want), len(got), got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Expected %s=%v, got %v", k, v, got[k])
				}
			}
		})
	}
}

func TestLogError_PlainError(t *testing.T) {
	logger := NewDefaultLogger()

	out := captureOutput(t, func() {
		LogError(logger, errTest{}, "SaveSession", map[string]interface{}{"app_id": "x"})
	})

	if !strings.Contains(out, "Unexpected error") {
		t.Errorf("Expected plain-error path, got %q", out)
	}
	if !strings.Contains(out, "SaveSession") {
		t.Errorf("Expected operation name in output, got %q", out)
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }

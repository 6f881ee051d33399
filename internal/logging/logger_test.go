package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{
			name:   "json format with info level",
			level:  slog.LevelInfo,
			format: "json",
		},
		{
			name:   "text format with debug level",
			level:  slog.LevelDebug,
			format: "text",
		},
		{
			name:   "default format (json) with error level",
			level:  slog.LevelError,
			format: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
			if logger.Logger == nil {
				t.Fatal("expected non-nil underlying logger")
			}
		})
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if logger.Logger == nil {
		t.Fatal("expected non-nil underlying logger")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := &Logger{Logger: slog.New(handler)}

	enrichedLogger := logger.With("service", "test-service", "version", "1.0")
	if enrichedLogger == nil {
		t.Fatal("expected non-nil logger from With()")
	}

	enrichedLogger.Info("test message")
	output := buf.String()

	if !strings.Contains(output, "test-service") {
		t.Errorf("expected service field in output, got: %s", output)
	}
	if !strings.Contains(output, "1.0") {
		t.Errorf("expected version field in output, got: %s", output)
	}
}

func TestWithGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := &Logger{Logger: slog.New(handler)}

	groupedLogger := logger.WithGroup("spool")
	if groupedLogger == nil {
		t.Fatal("expected non-nil logger from WithGroup()")
	}

	groupedLogger.Info("test message", "count", 42)
	output := buf.String()

	// Verify the output contains the group
	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err == nil {
		if _, ok := logEntry["spool"]; !ok {
			t.Errorf("expected 'spool' group in output, got: %s", output)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{
			name:     "debug level",
			input:    "debug",
			expected: slog.LevelDebug,
		},
		{
			name:     "info level",
			input:    "info",
			expected: slog.LevelInfo,
		},
		{
			name:     "warn level",
			input:    "warn",
			expected: slog.LevelWarn,
		},
		{
			name:     "error level",
			input:    "error",
			expected: slog.LevelError,
		},
		{
			name:     "invalid level defaults to info",
			input:    "invalid",
			expected: slog.LevelInfo,
		},
		{
			name:     "empty string defaults to info",
			input:    "",
			expected: slog.LevelInfo,
		},
		{
			name:     "uppercase DEBUG",
			input:    "DEBUG",
			expected: slog.LevelInfo, // Case sensitive, defaults to info
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	// Save original default
	originalDefault := slog.Default()
	defer slog.SetDefault(originalDefault)

	logger := New(slog.LevelInfo, "json")
	SetDefault(logger)

	// Verify slog.Default() returns our logger
	if slog.Default() != logger.Logger {
		t.Error("SetDefault did not update slog.Default()")
	}
}

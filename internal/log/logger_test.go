package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{
		Level:   level,
		Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}),
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewDefaultsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo)
	if logger.Component() != ComponentApp {
		t.Fatalf("component = %q, want %q", logger.Component(), ComponentApp)
	}

	logger.WithComponent(ComponentStorage).Info("opened", "path", "ledger.db")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0][FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %q", lines[0][FieldComponent], ComponentStorage)
	}
	if lines[0]["path"] != "ledger.db" {
		t.Errorf("path = %v", lines[0]["path"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background())
	if fallback == nil || fallback.Component() != "unknown" {
		t.Fatalf("fallback logger component = %v", fallback)
	}

	logger := Discard().WithComponent(ComponentView)
	ctx := NewContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("FromContext returned a different logger")
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "INFO"},
		{303, "INFO"},
		{422, "WARN"},
		{502, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelDebug))
		r := httptest.NewRequest("POST", "/expenses?x=1", nil)

		sl.LogHTTPEnd(context.Background(), r, "req-1", tt.status, 12, "10.0.0.1")

		lines := decodeLines(t, &buf)
		if len(lines) != 1 {
			t.Fatalf("status %d: got %d lines", tt.status, len(lines))
		}
		line := lines[0]
		if line["level"] != tt.want {
			t.Errorf("status %d: level = %v, want %s", tt.status, line["level"], tt.want)
		}
		if line[FieldRequestID] != "req-1" || line[FieldPath] != "/expenses" {
			t.Errorf("status %d: missing request fields: %v", tt.status, line)
		}
		if line[FieldSuccess] != (tt.status < 400) {
			t.Errorf("status %d: success = %v", tt.status, line[FieldSuccess])
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelInfo))

	sl.LogError(context.Background(), "publish failed", errors.New("broker down"),
		ComponentAMQP, OpPublish, NewFields().WithErrorType(ErrorTypeNetwork))

	line := decodeLines(t, &buf)[0]
	if line[FieldComponent] != ComponentAMQP || line[FieldOperation] != OpPublish {
		t.Errorf("unexpected fields: %v", line)
	}
	if line[FieldError] != "broker down" || line[FieldErrorType] != ErrorTypeNetwork {
		t.Errorf("unexpected error fields: %v", line)
	}
}

func TestWithExpenseOmitsZeroID(t *testing.T) {
	f := NewFields().WithExpense(0, "😢", 12.5)
	if _, ok := f[FieldExpenseID]; ok {
		t.Errorf("expense_id set for unsaved expense")
	}
	if f[FieldEmotion] != "😢" || f[FieldAmount] != 12.5 {
		t.Errorf("unexpected fields: %v", f)
	}

	f = NewFields().WithExpense(7, "😤", 1)
	if f[FieldExpenseID] != int64(7) {
		t.Errorf("expense_id = %v, want 7", f[FieldExpenseID])
	}
	if got := len(f.ToSlice()); got != 6 {
		t.Errorf("ToSlice length = %d, want 6", got)
	}
}

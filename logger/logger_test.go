package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", &buf)
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json", Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
	if l.GetLogger().GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %s", l.GetLogger().GetLevel())
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l.GetLogger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level from env, got %s", l.GetLogger().GetLevel())
	}
}

func TestJSONOutput_ServiceAndFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.WithComponent("stream").Info("started", Fields(FieldState, "flowing"))

	m := decodeLine(t, buf)
	if m[FieldService] != "test-svc" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
	if m[FieldComponent] != "stream" {
		t.Errorf("expected component field, got %v", m[FieldComponent])
	}
	if m[FieldState] != "flowing" {
		t.Errorf("expected state field, got %v", m[FieldState])
	}
	if m["message"] != "started" {
		t.Errorf("expected message 'started', got %v", m["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug/info to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Error("expected warn to be written")
	}
	if l.Enabled(zerolog.DebugLevel) {
		t.Error("expected debug to be disabled")
	}
}

func TestWithStream(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithStream("abc", "upper").Info("closed")

	m := decodeLine(t, buf)
	if m[FieldStreamID] != "abc" || m[FieldStream] != "upper" {
		t.Errorf("expected stream fields, got %v", m)
	}

	buf.Reset()
	l.WithStream("abc", "").Info("closed")
	if _, ok := decodeLine(t, buf)[FieldStream]; ok {
		t.Error("expected no stream name field for an unnamed stream")
	}
}

func TestWithContext_SpanIDs(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the same logger for a context without a span")
	}

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.WithContext(ctx).Info("traced")
	m := decodeLine(t, buf)
	if m[FieldTraceID] != traceID.String() {
		t.Errorf("expected trace id %s, got %v", traceID, m[FieldTraceID])
	}
	if m[FieldSpanID] != spanID.String() {
		t.Errorf("expected span id %s, got %v", spanID, m[FieldSpanID])
	}
}

func TestWithError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithError(fmt.Errorf("boom")).Error("failed")
	if decodeLine(t, buf)[FieldError] != "boom" {
		t.Errorf("expected error field, got %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithFields(map[string]interface{}{"key": "value"}).Info("x")
	if decodeLine(t, buf)["key"] != "value" {
		t.Errorf("expected key=value, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("discarded")
	if l.Enabled(zerolog.ErrorLevel) {
		t.Error("expected nop logger to be disabled")
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "stream-svc", &buf)
	l.Warn("careful")
	out := buf.String()
	if !strings.Contains(out, "[STR][WRN]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if !strings.Contains(out, "careful") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestGlobalLogger(t *testing.T) {
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}

	l := Nop()
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}

	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	if WithComponent("x") == nil {
		t.Error("expected component logger")
	}

	Init(Config{Level: "info", Format: "json"})
	if GetGlobalLogger() == l {
		t.Error("expected Init to replace the global logger")
	}
	SetGlobalLogger(nil)
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := Nop()
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
	if Get("unregistered-component") == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 {
		t.Errorf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("write", fmt.Errorf("closed"))
	if m[FieldOperation] != "write" || m[FieldError] != "closed" {
		t.Errorf("unexpected fields %v", m)
	}
	if _, ok := ErrorFields("write", nil)[FieldError]; ok {
		t.Error("expected no error field for nil error")
	}
}

func TestAlgorithmFields(t *testing.T) {
	m := AlgorithmFields("flush", 1500*time.Millisecond, nil)
	if m[FieldAlgorithm] != "flush" || m[FieldDuration] != int64(1500) {
		t.Errorf("unexpected fields %v", m)
	}
	if AlgorithmFields("flush", 0, fmt.Errorf("x"))[FieldError] != "x" {
		t.Error("expected error field")
	}
}

func TestTransitionFields(t *testing.T) {
	m := TransitionFields("flowing", "closed")
	if m[FieldState] != "closed" || m["from_state"] != "flowing" {
		t.Errorf("unexpected fields %v", m)
	}
}

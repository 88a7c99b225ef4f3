package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/noob000007/remote-conda-decorator/types"
)

func TestLogger_CallFields(t *testing.T) {
	var buf bytes.Buffer
	meta := &types.CallMeta{CallID: "c1", Env: "ml", Func: "pkg.Four"}
	logger := NewLogger(meta, WithWriter(&buf))

	logger.Info("call finished", map[string]any{"exit_code": 0})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, buf.String())
	}
	for key, want := range map[string]string{
		"call_id": "c1",
		"env":     "ml",
		"func":    "pkg.Four",
		"level":   "info",
		"message": "call finished",
	} {
		if got := entry[key]; got != want {
			t.Errorf("%s = %v, want %q", key, got, want)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["exit_code"] != float64(0) {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithLevel(zapcore.WarnLevel))

	logger.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	logger.Warn("shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not written: %q", buf.String())
	}

	buf.Reset()
	logger.SetLevel(zapcore.DebugLevel)
	logger.Debug("now visible", nil)
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel did not lower the level")
	}
}

func TestLogger_WithOutput(t *testing.T) {
	var first, second bytes.Buffer
	logger := New(WithWriter(&first)).ForCall(&types.CallMeta{CallID: "c2", Func: "f"})
	logger.WithOutput(&second).Error("boom", nil)

	if first.Len() != 0 {
		t.Error("original writer should be untouched")
	}
	if !strings.Contains(second.String(), `"call_id":"c2"`) {
		t.Errorf("call fields lost after WithOutput: %q", second.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Error("dropped", map[string]any{"k": "v"})
	logger.Sugar().Infof("dropped %d", 1)
	if logger.Enabled(zapcore.ErrorLevel) {
		t.Error("nop logger should enable nothing")
	}
}

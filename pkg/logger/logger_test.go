package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_SetFaultActive(t *testing.T) {
	tests := []struct {
		name       string
		returnCode int
		wantLevel  string
	}{
		{name: "success exit logs at info", returnCode: 0, wantLevel: "info"},
		{name: "nonzero exit logs at debug", returnCode: 7, wantLevel: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

			l.SetFaultActive("fault-1", "delay", "tc qdisc add dev eth0 root netem delay 100ms", tt.returnCode)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("unmarshaling log line: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", entry["level"], tt.wantLevel)
			}
			if entry["tag"] != "fault-1" {
				t.Errorf("tag = %v, want fault-1", entry["tag"])
			}
			if int(entry["return_code"].(float64)) != tt.returnCode {
				t.Errorf("return_code = %v, want %d", entry["return_code"], tt.returnCode)
			}
		})
	}
}

func TestLogger_SetFaultInactive(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	l.SetFaultInactive("fault-1")

	if !strings.Contains(buf.String(), `"tag":"fault-1"`) {
		t.Errorf("expected log line to contain tag, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "fault inactive") {
		t.Errorf("expected log line to contain message, got %q", buf.String())
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	child := l.WithFields(map[string]interface{}{"component": "scheduler"})
	child.Info("started")

	if !strings.Contains(buf.String(), `"component":"scheduler"`) {
		t.Errorf("expected child logger field, got %q", buf.String())
	}
}

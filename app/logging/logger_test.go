package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Level: "WARN", Format: "text", Output: &buf})
	a := NewAdapter(l)

	a.Log("info", "[TEST] hidden")
	a.Log("warning", "[TEST] shown")
	a.Log("error", "[TEST] failure")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "failure") {
		t.Errorf("expected warn and error messages, got %q", out)
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "DEBUG", Format: "json", Output: &buf})
	Debug("recompute", "rows", 3)

	if !strings.Contains(buf.String(), `"msg":"recompute"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

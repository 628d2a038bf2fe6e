package observability

import (
	"strings"
	"testing"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Debug(msg string, _ ...Field) { c.lines = append(c.lines, "D:"+msg) }
func (c *captureLogger) Info(msg string, _ ...Field)  { c.lines = append(c.lines, "I:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...Field)  { c.lines = append(c.lines, "W:"+msg) }
func (c *captureLogger) Error(msg string, _ ...Field) { c.lines = append(c.lines, "E:"+msg) }

func TestSetLoggerRoutesCalls(t *testing.T) {
	capture := new(captureLogger)
	SetLogger(capture)
	t.Cleanup(func() { SetLogger(nil) })

	Log().Info("hello")
	Log().Error("boom")

	if len(capture.lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(capture.lines))
	}
	if capture.lines[0] != "I:hello" || capture.lines[1] != "E:boom" {
		t.Fatalf("unexpected lines: %v", capture.lines)
	}
}

func TestSetLoggerNilRestoresNoop(t *testing.T) {
	SetLogger(nil)
	Log().Info("dropped")
}

func TestStdLoggerFormatsFields(t *testing.T) {
	var sb strings.Builder
	logger := NewStdLogger(&sb)
	logger.Info("connected", F("pair", "btc_jpy"), F("attempt", 3))

	out := sb.String()
	if !strings.Contains(out, "INFO connected") {
		t.Errorf("missing level/message: %q", out)
	}
	if !strings.Contains(out, "pair=btc_jpy") || !strings.Contains(out, "attempt=3") {
		t.Errorf("missing fields: %q", out)
	}
}

package log

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// memOutput captures formatted lines for assertions.
type memOutput struct {
	lines []string
}

func (m *memOutput) Write(_ *Entry, formatted []byte) error {
	m.lines = append(m.lines, string(formatted))
	return nil
}

func (m *memOutput) Close() error { return nil }

func TestLevelGating(t *testing.T) {
	out := &memOutput{}
	l := NewLogger(WithLevel(WarnLevel), WithFormatter(&TextFormatter{}), WithOutput(out))

	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	l.Error("kept")

	if len(out.lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %v", len(out.lines), out.lines)
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	out := &memOutput{}
	l := NewLogger(WithFormatter(&TextFormatter{}), WithOutput(out))
	l = l.WithComponent("store").With(Str("dir", "/tmp/q"))

	l.Info("opened", Int("workers", 2))

	if len(out.lines) != 1 {
		t.Fatalf("want 1 line, got %d", len(out.lines))
	}
	line := out.lines[0]
	for _, want := range []string{"component=store", "dir=/tmp/q", "workers=2", "opened"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestJSONFormatterFields(t *testing.T) {
	f := &JSONFormatter{}
	b, err := f.Format(&Entry{
		Level:     ErrorLevel,
		Message:   "flush failed",
		Timestamp: time.Now(),
		Fields:    Fields{"error": errors.New("disk full"), "batch": 3},
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"error":"disk full"`) {
		t.Fatalf("error not rendered as string: %s", s)
	}
	if !strings.Contains(s, `"level":"ERROR"`) {
		t.Fatalf("missing level: %s", s)
	}
}

func TestParseLevel(t *testing.T) {
	if lv, err := ParseLevel("debug"); err != nil || lv != DebugLevel {
		t.Fatalf("debug: got %v, %v", lv, err)
	}
	if lv, err := ParseLevel(""); err != nil || lv != InfoLevel {
		t.Fatalf("empty: got %v, %v", lv, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/raysh454/shieldsuite/internal/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewLogger("scorer", logging.LevelDebug, &buf)

	l.Info("assessed", logging.Field{Key: "risk_score", Value: 40})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["msg"] != "assessed" || lines[0]["component"] != "scorer" {
		t.Errorf("unexpected entry: %v", lines[0])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["risk_score"] != float64(40) {
		t.Errorf("expected risk_score field 40, got %v", fields["risk_score"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewLogger("", logging.LevelWarn, &buf)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines at warn level, got %d", len(lines))
	}
}

func TestLogger_WithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewLogger("server", logging.LevelDebug, &buf)

	child := l.With(logging.Field{Key: "component", Value: "alerts"}, logging.Field{Key: "req", Value: "abc"})
	child.Warn("dropped", logging.Field{Key: "error", Value: errors.New("boom")})

	lines := decodeLines(t, &buf)
	if lines[0]["component"] != "alerts" {
		t.Errorf("expected component alerts, got %v", lines[0]["component"])
	}
	fields, _ := lines[0]["fields"].(map[string]any)
	if fields["req"] != "abc" {
		t.Errorf("expected persistent field req=abc, got %v", fields["req"])
	}
	if fields["error"] != "boom" {
		t.Errorf("expected error rendered as string, got %v", fields["error"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"INFO":    logging.LevelInfo,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"":        logging.LevelInfo,
		"bogus":   logging.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

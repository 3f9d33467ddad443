package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Format: "json", Console: true, Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("elo_match_recorded", zap.String("game", "chess"))
	_ = l.Sync()

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if rec["msg"] != "elo_match_recorded" || rec["game"] != "chess" || rec["level"] != "debug" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Options{Level: "warn", Console: true, Stdout: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "WARN | ") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bot.log")
	l, err := New(Options{Format: "console", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("to_file")
	_ = l.Sync()
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), "to_file") {
		t.Fatalf("file = %q err=%v", b, err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel, "WARNING": zapcore.WarnLevel, "error": zapcore.ErrorLevel, "bogus": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetNilFallsBackToNop(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })
	Set(nil)
	if L() == nil {
		t.Fatalf("L() must never be nil")
	}
}

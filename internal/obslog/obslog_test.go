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

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Console: true, Format: "json", ConsoleTo: zapcore.AddSync(&buf)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("engine_ready", zap.String("engine", "pikafish"))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["msg"] != "engine_ready" || entry["engine"] != "pikafish" || entry["level"] != "debug" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Console: true, Format: "console", ConsoleTo: zapcore.AddSync(&buf)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "xq.log")
	logger, err := New(Options{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("to_file")
	_ = logger.Sync()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "to_file") || !strings.Contains(string(b), " | ") {
		t.Fatalf("file content = %q", b)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{"": zapcore.InfoLevel, "WARNING": zapcore.WarnLevel, "debug": zapcore.DebugLevel, "bogus": zapcore.InfoLevel}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zap.DebugLevel,
		"info":  zap.InfoLevel,
		"warn":  zap.WarnLevel,
		"error": zap.ErrorLevel,
	}
	for name, want := range cases {
		got, ok := ParseLevel(name)
		if !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", name, got, ok)
		}
	}
	if got, ok := ParseLevel("loud"); ok || got != zap.ErrorLevel {
		t.Errorf("ParseLevel(loud) = %v, %v", got, ok)
	}
}

func TestReplaceRoutesPackageFunctions(t *testing.T) {
	old := defaultLogger
	defer Replace(old)

	core, logs := observer.New(zap.DebugLevel)
	Replace(zap.New(core))

	Debug("dropped", zap.String("reason", "checksum"))
	Warn("port overwritten", zap.Uint16("port", 53))

	if logs.Len() != 2 {
		t.Fatalf("got %d entries, want 2", logs.Len())
	}
	if got := logs.FilterField(zap.String("reason", "checksum")).Len(); got != 1 {
		t.Fatalf("reason field missing")
	}
}

func TestUpdateLoggerWritesFile(t *testing.T) {
	old := defaultLogger
	defer Replace(old)

	path := filepath.Join(t.TempDir(), "netlab.log")
	UpdateLogger(&Log{Level: "info", Path: path, MaxSize: 1})
	Info("hello file")
	CloseLogger()

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%v\n", err)
	}
	if !strings.Contains(string(buf), "hello file") {
		t.Fatalf("log file does not contain message: %s", buf)
	}
}

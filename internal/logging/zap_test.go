package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestWrapForwardsLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.Debug("loading", "path", "herd.ped")
	logger.Info("loaded", "animals", 3)
	logger.Warn("separator empty")
	logger.Error("load failed", "error", "boom")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[1].Message != "loaded" || entries[1].Level != zapcore.InfoLevel {
		t.Fatalf("unexpected entry %+v", entries[1])
	}
	fields := entries[1].ContextMap()
	if fields["animals"] != int64(3) {
		t.Fatalf("unexpected fields %+v", fields)
	}
	if entries[3].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[3].Level)
	}
}

func TestNewAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		if _, err := New(level, "console"); err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
	}
	if _, err := New("info", "json"); err != nil {
		t.Fatalf("json format: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PEDIGREECORE_LOG_LEVEL", "debug")
	t.Setenv("PEDIGREECORE_LOG_FORMAT", "console")
	logger, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	logger.Info("up")
}

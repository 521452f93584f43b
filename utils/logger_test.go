package utils

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerLevelsAndFormats(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error", ""} {
		for _, format := range []string{"console", "json", ""} {
			if _, err := NewLogger(level, format); err != nil {
				t.Errorf("NewLogger(%q, %q): %v", level, format, err)
			}
		}
	}

	if _, err := NewLogger("loud", "console"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLoggerFormatsAndCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With("run_id", "abc")

	l.Info("[reader] Read %d rows from %s", 3, "in.csv")
	l.Warn("[normalizer] Skipping %s", "row")
	l.Debug("[metrics] done")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(entries))
	}
	if entries[0].Message != "[reader] Read 3 rows from in.csv" {
		t.Errorf("message: got %q", entries[0].Message)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("level: got %v, want warn", entries[1].Level)
	}
	if got := entries[2].ContextMap()["run_id"]; got != "abc" {
		t.Errorf("run_id field: got %v", got)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("nothing %d", 1)
	if err := l.Sync(); err != nil {
		t.Errorf("Sync: %v", err)
	}
}

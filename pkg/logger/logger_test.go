package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	l := New(LoggingConfig{Level: "not-a-level", Format: "json", Output: "stdout"})
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info-level fallback, got %v", l.GetLevel())
	}
}

func TestNewHonorsExplicitLevel(t *testing.T) {
	l := New(LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", l.GetLevel())
	}
}

func TestNewDefaultsToTextFormatterWhenNotJSON(t *testing.T) {
	l := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected a TextFormatter, got %T", l.Formatter)
	}
}

func TestNewUsesJSONFormatterWhenRequested(t *testing.T) {
	l := New(LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected a JSONFormatter, got %T", l.Formatter)
	}
}

func TestWithRunTagsRunAndAlertIDs(t *testing.T) {
	l := NewDefault("test")
	entry := l.WithRun("run-1", "alert-1")
	if entry.Data["runId"] != "run-1" || entry.Data["alertId"] != "alert-1" {
		t.Fatalf("unexpected fields: %+v", entry.Data)
	}
}

func TestWithStepTagsRunStepAndSeq(t *testing.T) {
	l := NewDefault("test")
	entry := l.WithStep("run-1", "get_profile", 2)
	if entry.Data["runId"] != "run-1" || entry.Data["step"] != "get_profile" || entry.Data["seq"] != 2 {
		t.Fatalf("unexpected fields: %+v", entry.Data)
	}
}

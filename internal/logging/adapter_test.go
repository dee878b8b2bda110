package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/robfig/cron/v3"
)

var _ cron.Logger = (*CronAdapter)(nil)

func TestNewCronAdapter_WithNil(t *testing.T) {
	adapter := NewCronAdapter(nil)
	if adapter == nil || adapter.Logger() == nil {
		t.Fatal("NewCronAdapter(nil) should fall back to the default logger")
	}
}

func TestCronAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	adapter := NewCronAdapter(logger)

	adapter.Info("wake", "now", "07:00")
	if buf.Len() != 0 {
		t.Errorf("cron info should be logged at debug, got %q", buf.String())
	}

	adapter.Error(errors.New("panic in job"), "job failed", "entry", 1)
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "panic in job") {
		t.Errorf("expected error line, got %q", out)
	}
	if !strings.Contains(out, "entry=1") {
		t.Errorf("expected key-values preserved, got %q", out)
	}
}

package logger_i

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/akolanti/LegalRAG/internal/config"
)

func TestLogger_ComponentAndTrace(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWith(&buf, "debug", false)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-42")
	NewLogger("ingest").WithTrace(ctx).Error("upsert failed", "attempt", 3)

	out := buf.String()
	for _, want := range []string{"component=ingest", "traceId=trace-42", "upsert failed", "attempt=3", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWith(&buf, "warn", false)
	log := NewLogger("test")
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn to be written, got %q", out)
	}
}

func TestLogger_WithTraceWithoutValue(t *testing.T) {
	l := NewLogger("x")
	if l.WithTrace(context.Background()) != l {
		t.Error("expected the same logger when no trace id is present")
	}
}

package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

func TestLoggerProviderHonoursLevel(t *testing.T) {
	testCases := []struct {
		level   string
		written []string
		dropped []string
	}{
		{level: "debug", written: []string{"debug line", "info line", "error line"}},
		{level: "info", written: []string{"info line", "error line"}, dropped: []string{"debug line"}},
		{level: "warn", written: []string{"error line"}, dropped: []string{"debug line", "info line"}},
		{level: "error", written: []string{"error line"}, dropped: []string{"debug line", "info line"}},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			var out bytes.Buffer
			lp, err := NewLoggerProvider(&out, tc.level, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			logger := otelslog.NewLogger("test", otelslog.WithLoggerProvider(lp))

			logger.Debug("debug line")
			logger.Info("info line")
			logger.Error("error line")
			if err := lp.Shutdown(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, message := range tc.written {
				if !strings.Contains(out.String(), message) {
					t.Fatalf("expected %q to be written, got %s", message, out.String())
				}
			}
			for _, message := range tc.dropped {
				if strings.Contains(out.String(), message) {
					t.Fatalf("expected %q to be dropped, got %s", message, out.String())
				}
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	testCases := map[string]log.Severity{
		"debug":   log.SeverityDebug,
		"info":    log.SeverityInfo,
		"WARN":    log.SeverityWarn,
		"error":   log.SeverityError,
		"unknown": log.SeverityInfo,
	}
	for level, expected := range testCases {
		if got := Severity(level); got != expected {
			t.Fatalf("expected %v for %q, got %v", expected, level, got)
		}
	}
}

func TestSetupInstallsGlobalLoggerProvider(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := Setup(t.Context(), Options{Level: "info", Output: &out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	otelslog.NewLogger("talkingai/test").Info("routed through the global provider")
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "routed through the global provider") {
		t.Fatalf("expected the global provider to write the record, got %s", out.String())
	}
	if _, ok := global.GetLoggerProvider().(interface{ ForceFlush(context.Context) error }); !ok {
		t.Fatalf("expected an SDK logger provider to be installed, got %T", global.GetLoggerProvider())
	}
}

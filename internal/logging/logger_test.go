package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerIncludesComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	NewComponentLogger(logger, "fetcher").Info("window complete", Int("saved", 3))

	line := buf.String()
	if !strings.Contains(line, "fetcher: window complete") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if !strings.Contains(line, "saved=3") {
		t.Fatalf("expected attr in %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Warn("skip", String("reason", "missing download url"))

	if !strings.Contains(buf.String(), `reason="missing download url"`) {
		t.Fatalf("expected quoted value in %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"bogus": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNoopHandlerDisabled(t *testing.T) {
	if (NoopHandler{}).Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop handler should never be enabled")
	}
}

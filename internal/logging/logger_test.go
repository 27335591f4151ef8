package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stepwise/internal/config"
	"stepwise/internal/logging"
	"stepwise/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started", logging.String(logging.FieldEventType, "daemon_start"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")
	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleHeaderCarriesSubject(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "session").With(
		logging.String(logging.FieldTask, "lamp"),
		logging.String(logging.FieldSessionID, "0123456789abcdef"),
	)
	logger.Info("step advanced",
		logging.String(logging.FieldEventType, "step_advanced"),
		logging.String(logging.FieldStep, "PIPE"),
	)

	out := buf.String()
	header := strings.SplitN(out, "\n", 2)[0]
	for _, want := range []string{"INFO", "[session]", "Lamp · 01234567", "step advanced"} {
		if !strings.Contains(header, want) {
			t.Fatalf("header %q missing %q", header, want)
		}
	}
	if !strings.Contains(out, "    - Event type: step_advanced") {
		t.Fatalf("expected event type bullet, got %q", out)
	}
	if !strings.Contains(out, "    - Step: PIPE") {
		t.Fatalf("expected step bullet, got %q", out)
	}
}

func TestConsoleInfoHidesExcessFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("busy", "a", 1, "b", 2, "c", 3, "d", 4, "e", 5, "f", 6, "g", 7, "h", 8)
	if !strings.Contains(buf.String(), "+ 2 more fields hidden") {
		t.Fatalf("expected hidden field summary, got %q", buf.String())
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json line: %v (%q)", err, buf.String())
	}
	if decoded["msg"] != "json message" || decoded["k"] != "v" || decoded["level"] != "info" {
		t.Fatalf("unexpected json record %v", decoded)
	}
	if _, ok := decoded["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", decoded)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level filtering, got %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "sess-1")
	ctx = services.WithTask(ctx, "sandwich")
	ctx = services.WithRequestID(ctx, "req-xyz")

	hub := logging.NewStreamHub(8)
	base, err := logging.New(logging.Options{Format: "json", Writer: &bytes.Buffer{}, Hub: hub})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithContext(ctx, base).Info("contextual log")

	events := hub.Tail(0)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.SessionID != "sess-1" || evt.Task != "sandwich" || evt.CorrelationID != "req-xyz" {
		t.Fatalf("context fields missing: %+v", evt)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	hub := logging.NewStreamHub(8)
	base, err := logging.New(logging.Options{Format: "json", Writer: &bytes.Buffer{}, Hub: hub})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(base, "detector slow", "detector_slow",
		logging.Impact("frames delayed"),
		logging.Error(errors.New("boom")),
	)
	evt := hub.Tail(1)[0]
	if evt.EventType != "detector_slow" {
		t.Fatalf("expected event type, got %+v", evt)
	}
	if evt.Fields[logging.FieldErrorHint] == "" {
		t.Fatalf("expected default error hint, got %+v", evt.Fields)
	}
	if evt.Fields[logging.FieldImpact] != "frames delayed" {
		t.Fatalf("caller impact must win, got %q", evt.Fields[logging.FieldImpact])
	}
	if evt.Fields["error"] != "boom" {
		t.Fatalf("expected error field, got %+v", evt.Fields)
	}
}

func TestErrorWithContextInjectsEventType(t *testing.T) {
	hub := logging.NewStreamHub(8)
	base, err := logging.New(logging.Options{Format: "json", Writer: &bytes.Buffer{}, Hub: hub})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(base, "daemon start failed", "daemon_start_failed",
		logging.Step("PIPE"),
		logging.Revision(4),
		logging.Hint("check paths.api_bind"),
	)
	evt := hub.Tail(1)[0]
	if evt.EventType != "daemon_start_failed" || evt.Step != "PIPE" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Fields[logging.FieldErrorHint] != "check paths.api_bind" {
		t.Fatalf("caller hint must win, got %+v", evt.Fields)
	}
	if evt.Fields[logging.FieldRevision] != "4" {
		t.Fatalf("expected revision field, got %+v", evt.Fields)
	}
	if _, ok := evt.Fields[logging.FieldImpact]; ok {
		t.Fatalf("errors do not get a default impact: %+v", evt.Fields)
	}
}

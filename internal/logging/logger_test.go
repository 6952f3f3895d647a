package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gameshelf/internal/config"
	"gameshelf/internal/logging"
	"gameshelf/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.ToFile = true
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello", logging.String("source", "catalogA"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "gameshelf.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"source":"catalogA"`) {
		t.Fatalf("expected json attribute in log file, got %q", string(data))
	}
}

func TestConsoleLoggerHoistsComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "bulk").Info("batch fetched", logging.Int("requested", 3))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `level=INFO msg="bulk: batch fetched"`) {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "requested=3") {
		t.Fatalf("expected attribute, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component attribute should be hoisted, got %q", line)
	}
}

func TestConsoleLoggerKeepsGroupedComponentAttr(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "grouped.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "search").WithGroup("upstream").Debug("call", logging.String(logging.FieldComponent, "igdb"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `msg="search: call"`) {
		t.Fatalf("expected outer component prefix, got %q", line)
	}
	if !strings.Contains(line, "upstream.component=igdb") {
		t.Fatalf("expected grouped attribute kept, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "catalog degraded", "catalog_degraded")

	data, _ := os.ReadFile(logPath)
	for _, key := range []string{`"event_type":"catalog_degraded"`, `"error_hint"`, `"impact"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in %q", key, string(data))
		}
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-9")
	ctx = services.WithOperation(ctx, "search")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != logging.FieldCorrelationID || fields[0].Value.String() != "req-9" {
		t.Fatalf("unexpected first field %+v", fields[0])
	}
	if logger := logging.WithContext(ctx, nil); logger == nil {
		t.Fatal("expected logger")
	}
	var _ slog.Handler = logging.NoopHandler{}
}

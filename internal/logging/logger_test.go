package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelvault/internal/config"
	"reelvault/internal/logging"
	"reelvault/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("catalog opened", logging.String(logging.FieldComponent, "catalog"))

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "catalog: catalog opened") {
		t.Fatalf("expected component prefix in console output, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRecordID(context.Background(), 7)
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("handle refreshed", logging.String(logging.FieldEventType, "handle_refreshed"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["msg"] != "handle refreshed" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
	if entry[logging.FieldRecordID] != float64(7) {
		t.Fatalf("expected record_id 7, got %v", entry[logging.FieldRecordID])
	}
	if entry[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("expected correlation id, got %v", entry[logging.FieldCorrelationID])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestLoggersRedactCredentials(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logPath := filepath.Join(t.TempDir(), format+".log")
		logger, err := logging.New(logging.Options{
			Format:      format,
			Level:       "info",
			OutputPaths: []string{logPath},
		})
		if err != nil {
			t.Fatalf("New(%s) returned error: %v", format, err)
		}
		logger.Info("config loaded",
			logging.String("bot_token", "123:SECRET"),
			logging.String("catalog_dsn", "postgres://u:pw@db/catalog"),
			logging.String("catalog_backend", "postgres"),
		)

		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		out := string(content)
		if strings.Contains(out, "SECRET") || strings.Contains(out, "pw@db") {
			t.Fatalf("%s output leaked credentials: %q", format, out)
		}
		if !strings.Contains(out, "[redacted]") || !strings.Contains(out, "postgres") {
			t.Fatalf("%s output missing expected fields: %q", format, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "mirror queue full", "mirror_queue_full")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{"event_type=mirror_queue_full", "error_hint=", "impact="} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %q", fragment, text)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("ignored")
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
}

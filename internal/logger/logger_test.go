package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_DefaultConfig(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	if logger.config.Level != "info" {
		t.Errorf("expected default level = info, got %s", logger.config.Level)
	}
	if logger.config.Format != "console" {
		t.Errorf("expected default format = console, got %s", logger.config.Format)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "verbose", Format: "console"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNew_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := New(&Config{
		Level:      "info",
		Format:     "json",
		OutputPath: logPath,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.WithFields("page", 3, "carrier", "USPS").Info("processed page")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "processed page") {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), "USPS") {
		t.Errorf("log file missing structured field: %s", data)
	}
}

func TestWithHelpers(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "helpers.log")

	logger, err := New(&Config{Level: "debug", Format: "json", OutputPath: logPath})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.WithPage(7).WithCarrier("GOFO").WithError(os.ErrNotExist).Info("page done")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	for _, field := range []string{`"page":7`, `"carrier":"GOFO"`, `"error":`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("log entry missing %s: %s", field, data)
		}
	}
}

func TestGet_CreatesDefault(t *testing.T) {
	defaultLogger = nil
	if Get() == nil {
		t.Fatal("expected a default logger")
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error"} {
		if _, err := parseLevel(level); err != nil {
			t.Errorf("parseLevel(%q) error = %v", level, err)
		}
	}
	if _, err := parseLevel("trace"); err == nil {
		t.Error("expected error for unknown level")
	}
}

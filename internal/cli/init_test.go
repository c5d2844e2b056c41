package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ledger/internal/config"
	applog "ledger/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "LEDGER_TEST_FROM_FILE=file\nLEDGER_TEST_PRESET=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	os.Unsetenv("LEDGER_TEST_FROM_FILE")
	t.Cleanup(func() { os.Unsetenv("LEDGER_TEST_FROM_FILE") })
	t.Setenv("LEDGER_TEST_PRESET", "env")

	LoadEnvFile(path)

	if got := os.Getenv("LEDGER_TEST_FROM_FILE"); got != "file" {
		t.Errorf("LEDGER_TEST_FROM_FILE = %q, want file", got)
	}
	if got := os.Getenv("LEDGER_TEST_PRESET"); got != "env" {
		t.Errorf("existing variable overridden: %q", got)
	}

	// Missing files are ignored.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestSetupLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug"}
	logger := SetupLogger(applog.ComponentWorker, cfg)
	if logger.Component() != applog.ComponentWorker {
		t.Errorf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), cfg.SlogLevel()) {
		t.Errorf("debug level should be enabled")
	}
}

package testsupport

import (
	"path/filepath"
	"testing"

	"watchq/internal/config"
	"watchq/internal/logging"
)

// NewLogger returns a file-backed logger so test output stays quiet.
func NewLogger(t testing.TB, cfg *config.Config) *logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Options{
		Level:       "error",
		Format:      "console",
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "test.log")},
	})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	return logger
}

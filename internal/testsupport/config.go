package testsupport

import (
	"path/filepath"
	"testing"

	"watchq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SocketPath = filepath.Join(base, "watchqd.sock")
	cfg.Paths.BridgeBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRescanSeconds overrides the content rescan interval.
func WithRescanSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Content.RescanIntervalSeconds = seconds
	}
}

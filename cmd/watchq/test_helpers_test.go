package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"watchq/internal/daemon"
	"watchq/internal/ipc"
	"watchq/internal/testsupport"
)

type cliTestEnv struct {
	daemon     *daemon.Daemon
	socketPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	logger := testsupport.NewLogger(t, cfg)

	d, err := daemon.New(cfg, st, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger.Logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{daemon: d, socketPath: socketPath}
}

func runCLI(t *testing.T, args []string, socket string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--socket", socket}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, args []string, socket string) string {
	t.Helper()
	out, _, err := runCLI(t, args, socket)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

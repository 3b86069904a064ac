package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"watchq/internal/config"
	"watchq/internal/daemon"
	"watchq/internal/ipc"
	"watchq/internal/logging"
	"watchq/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, st, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger.Logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-ctx.Done()
	logger.Info("watchqd shutting down")
}

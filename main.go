package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"goldenbrigade/server/internal/config"
	"goldenbrigade/server/internal/lobby"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := []lobby.Option{
		lobby.WithMaxTurns(cfg.MaxTurns),
		lobby.WithWaitingTimeout(cfg.WaitingTimeout),
	}
	if cfg.JournalDir != "" {
		options = append(options, lobby.WithJournalRoot(cfg.JournalDir))
	}
	registry := lobby.New(logger, options...)
	go registry.Run(ctx, cfg.SweepInterval)

	srv := server.New(cfg, logger, registry)
	if cfg.WSAddress != "" {
		gateway := server.NewGateway(srv)
		go func() {
			if err := gateway.ListenAndServe(ctx); err != nil {
				logger.Error("websocket gateway failed", logging.Error(err))
				stop()
			}
		}()
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("session server failed", logging.Error(err))
	}
	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"paycore/internal/app/server"
	"paycore/internal/platform/config"
	"paycore/internal/platform/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/auction-ledger/internal/app"
	"github.com/riskibarqy/auction-ledger/internal/config"
	"github.com/riskibarqy/auction-ledger/internal/observability"
	"github.com/riskibarqy/auction-ledger/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	bootLogger := logging.NewJSON(logging.LevelInfo)
	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Error("load .env", "error", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("load config", "error", err)
		return 1
	}

	logger := logging.New(cfg.LogLevel, cfg.AppEnv == config.EnvDev).With(
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
	)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return 1
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return 1
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error("app stopped with error", "error", err)
		return 1
	}
	logger.Info("app stopped")
	return 0
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/config"
	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/bootstrap"
	"github.com/GoSim-25-26J-441/playground-sync/internal/logging"
	"github.com/GoSim-25-26J-441/playground-sync/internal/maintenance"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: worker purge | schedule")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := bootstrap.OpenRemote(ctx, &cfg.Remote, auth.NewSession(nil, logger), logger)
	if err != nil {
		logger.Fatal("open remote store", zap.Error(err))
	}
	defer func() { _ = remote.Close() }()
	if remote.Store == nil {
		logger.Fatal("REMOTE_PROVIDER is none, nothing to maintain")
	}

	scheduler := maintenance.NewScheduler(remote.Store, cfg.Remote.PurgeSchedule, cfg.Remote.TombstoneRetention, logger, nil)

	switch os.Args[1] {
	case "purge":
		if _, err := scheduler.RunOnce(ctx); err != nil {
			logger.Fatal("purge failed", zap.Error(err))
		}
	case "schedule":
		if err := scheduler.Start(); err != nil {
			logger.Fatal("start scheduler", zap.Error(err))
		}
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = scheduler.Stop(stopCtx)
	default:
		logger.Fatal("unknown command", zap.String("command", os.Args[1]))
	}
}

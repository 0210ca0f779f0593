package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/config"
	httpapi "github.com/GoSim-25-26J-441/playground-sync/internal/api/http"
	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
	"github.com/GoSim-25-26J-441/playground-sync/internal/bootstrap"
	"github.com/GoSim-25-26J-441/playground-sync/internal/logging"
	"github.com/GoSim-25-26J-441/playground-sync/internal/maintenance"
	"github.com/GoSim-25-26J-441/playground-sync/internal/metrics"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/repository"
	"github.com/GoSim-25-26J-441/playground-sync/internal/projects/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", cfg.App.ServiceName), zap.String("env", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := metrics.NewSyncMetrics(reg)

	verifier, err := auth.NewVerifier(ctx, &cfg.Auth)
	if err != nil {
		logger.Fatal("init auth", zap.Error(err))
	}
	session := auth.NewSession(verifier, logger.Named("auth"))

	backend, err := bootstrap.OpenLocalBackend(ctx, cfg.Local)
	if err != nil {
		logger.Fatal("open local store", zap.Error(err))
	}
	defer func() { _ = backend.Close() }()
	local := repository.NewLocalRepository(backend, repository.WithQuota(cfg.Local.QuotaBytes))

	remote, err := bootstrap.OpenRemote(ctx, &cfg.Remote, session, logger)
	if err != nil {
		logger.Fatal("open remote store", zap.Error(err))
	}
	defer func() { _ = remote.Close() }()

	var remotePinger httpapi.Pinger
	if remote.Store != nil {
		remotePinger = remote.Store
	}

	seed, err := service.LoadSeed(cfg.Sync.SeedTemplate)
	if err != nil {
		logger.Fatal("load seed template", zap.Error(err))
	}

	coord := service.NewCoordinator(local, remote.Store, session, service.Options{
		Seed:     seed,
		Debounce: cfg.Sync.Debounce,
		Logger:   logger,
		Metrics:  syncMetrics,
	})
	if err := coord.Start(ctx); err != nil {
		logger.Fatal("start coordinator", zap.Error(err))
	}

	var scheduler *maintenance.Scheduler
	if remote.Store != nil {
		scheduler = maintenance.NewScheduler(remote.Store, cfg.Remote.PurgeSchedule, cfg.Remote.TombstoneRetention, logger, syncMetrics)
		if err := scheduler.Start(); err != nil {
			logger.Fatal("start maintenance", zap.Error(err))
		}
	}

	bootstrap.SetGinMode(cfg.App.Environment)
	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		Logger:         logger.Named("http"),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Coordinator:    coord,
		Session:        session,
		Local:          backend,
		Remote:         remotePinger,
		Gatherer:       reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if scheduler != nil {
		_ = scheduler.Stop(shutdownCtx)
	}
	if err := coord.Close(shutdownCtx); err != nil {
		logger.Warn("uploads still pending at shutdown", zap.Error(err))
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/firmlens/firmlens/internal/analytics"
	"github.com/firmlens/firmlens/internal/app"
	"github.com/firmlens/firmlens/internal/mvk"
	"github.com/firmlens/firmlens/internal/platform/cache"
	"github.com/firmlens/firmlens/internal/platform/db"
	"github.com/firmlens/firmlens/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient, 10*time.Minute)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache)

	mvkRepo := mvk.NewRepository(pool)
	mvkEngine := mvk.NewEngine(mvkRepo)
	mvkService := mvk.NewService(mvkEngine, mvkRepo, cfg.DeclarationMaxAge, logger)

	refreshJob := jobs.NewDeclarationRefreshJob(mvkService, mvkRepo, logger, nil)
	warmupJob := jobs.NewAnalyticsWarmupJob(analyticsService, logger, nil)
	riskJob := jobs.NewRiskScanJob(pool, logger, nil)

	warmupTask, err := jobs.NewAnalyticsWarmupTask(true)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	riskTask, err := jobs.NewRiskScanTask(0, 30)
	if err != nil {
		logger.Error("build risk scan task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewDeclarationRefreshTask("all", 0)
	if err != nil {
		logger.Error("build declaration refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDeclarationRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskRiskScan, Handler: riskJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: riskTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 2 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/Emran025/supermarket-system-sub001/internal/app"
	jobmetrics "github.com/Emran025/supermarket-system-sub001/internal/jobs"
	"github.com/Emran025/supermarket-system-sub001/internal/observability"
	"github.com/Emran025/supermarket-system-sub001/jobs"
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
	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	rt, err := app.Bootstrap(ctx, cfg, logger, metrics.Ledger)
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}
	defer rt.Close()
	engine := rt.Engine

	depreciationTask, err := jobs.NewDepreciationTask(jobs.DepreciationPayload{})
	if err != nil {
		logger.Error("build depreciation task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewIntegrityTask(jobs.IntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	revaluationTask, err := jobs.NewRevaluationTask(time.Time{})
	if err != nil {
		logger.Error("build revaluation task", slog.Any("error", err))
		os.Exit(1)
	}

	depreciationJob := jobs.NewDepreciationJob(engine.Assets, logger, jobMetrics)
	integrityJob := jobs.NewIntegrityJob(engine.Reports, logger, jobMetrics)
	revaluationJob := jobs.NewRevaluationJob(engine.Inventory, logger, jobMetrics)
	eventJobs := jobs.NewEventJobs(engine.Hooks, logger, jobMetrics)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	handlers := append([]jobs.TaskHandler{
		{Type: jobs.TaskAssetsDepreciation, Handler: depreciationJob.Handle},
		{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
		{Type: jobs.TaskInventoryRevaluation, Handler: revaluationJob.Handle},
	}, eventJobs.Handlers()...)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DepreciationCron, Task: depreciationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IntegrityCron, Task: integrityTask},
			{Spec: cfg.RevaluationCron, Task: revaluationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Jobs:    jobs.NewHandler(inspector, logger),
		Checks: map[string]app.HealthCheck{
			"postgres": rt.Pool.Ping,
			"redis": func(ctx context.Context) error {
				if rt.Redis == nil {
					return errors.New("not connected")
				}
				return rt.Redis.Ping(ctx).Err()
			},
		},
	})
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("ops server listening", slog.String("addr", cfg.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return worker.Run(gctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

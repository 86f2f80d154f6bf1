package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/greengate/internal/app"
	"github.com/angelmondragon/greengate/internal/cron"
	"github.com/angelmondragon/greengate/pkg/config"
	"github.com/angelmondragon/greengate/pkg/db"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/instance"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/metrics"
	"github.com/angelmondragon/greengate/pkg/migrate"
	"github.com/angelmondragon/greengate/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	upstreamMetrics := metrics.NewUpstreamMetrics(prometheus.DefaultRegisterer)
	upstream, err := drgreen.NewFromConfig(cfg.DrGreen, drgreen.WithLogger(logg), drgreen.WithMetrics(upstreamMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to create drgreen client", err)
		os.Exit(1)
	}

	services, err := app.Build(dbClient.DB(), cfg, upstream, upstreamMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	schedules, err := services.Schedules(app.ScheduleParams{
		Config:   cfg,
		Upstream: upstream,
		DB:       dbClient,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
		LockFor: func(name string) (cron.Lock, error) {
			lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(name), 0)
			if err != nil {
				return nil, err
			}
			return lock, nil
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create schedules", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"schedules":   len(schedules),
		"instance":    instance.ID(),
	})
	logg.Info(ctx, "starting sync worker")

	g, gctx := errgroup.WithContext(ctx)
	for _, schedule := range schedules {
		g.Go(func() error {
			return schedule.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}

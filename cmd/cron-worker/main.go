package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pos-catalog-backend/internal/cron"
	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	product "github.com/angelmondragon/pos-catalog-backend/internal/products"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/instance"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"github.com/angelmondragon/pos-catalog-backend/pkg/migrate"
	"github.com/angelmondragon/pos-catalog-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Redis.Enabled() {
		logg.Error(context.Background(), "cron worker requires redis", errors.New("redis url or address not configured"))
		os.Exit(1)
	}

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

	imageStore, err := images.NewDiskStore(images.DiskStoreConfig{
		Dir:         cfg.Images.Dir,
		URLPrefix:   cfg.Images.URLPrefix,
		Placeholder: cfg.Images.Placeholder,
		MaxBytes:    cfg.Images.MaxUploadBytes(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create image store", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	orphanJob, err := cron.NewImageOrphanJob(cron.ImageOrphanJobParams{
		Logger:     logg,
		Store:      imageStore,
		References: product.NewRepository(dbClient.DB()),
		Metrics:    metricsCollector,
		MinAge:     cfg.Images.OrphanMinAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create image orphan job", err)
		os.Exit(1)
	}
	registry, err := cron.NewRegistry(orphanJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"instance": instance.ID(),
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

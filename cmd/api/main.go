package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/pos-catalog-backend/api/routes"
	"github.com/angelmondragon/pos-catalog-backend/internal/auth"
	"github.com/angelmondragon/pos-catalog-backend/internal/categories"
	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	product "github.com/angelmondragon/pos-catalog-backend/internal/products"
	"github.com/angelmondragon/pos-catalog-backend/internal/users"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/instance"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"github.com/angelmondragon/pos-catalog-backend/pkg/migrate"
	"github.com/angelmondragon/pos-catalog-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency keys are ignored")
	}

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
	janitor, err := images.NewJanitor(imageStore, cfg.Images.DeleteQueueSize, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create image janitor", err)
		os.Exit(1)
	}
	resolver, err := images.NewResolver(cfg.Images.PublicBaseURL, cfg.Images.URLPrefix)
	if err != nil {
		logg.Error(context.Background(), "failed to create image resolver", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categories.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	productService, err := product.NewService(
		product.NewRepository(dbClient.DB()),
		dbClient,
		categoryService,
		resolver,
		imageStore,
		janitor,
		metrics.NewStockMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	if cfg.Bootstrap.Enabled() {
		created, err := authService.EnsureAdmin(context.Background(), cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap admin account", err)
			os.Exit(1)
		}
		if created {
			logg.Info(logg.WithField(context.Background(), "email", cfg.Bootstrap.AdminEmail), "bootstrap admin account created")
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, categoryService, productService, authService),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return janitor.Run(groupCtx)
	})
	group.Go(func() error {
		logg.Info(groupCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		logg.Info(groupCtx, "api server shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

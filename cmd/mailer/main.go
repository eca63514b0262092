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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/threadhouse-backend/internal/notifications"
	"github.com/angelmondragon/threadhouse-backend/pkg/config"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/mailer"
	"github.com/angelmondragon/threadhouse-backend/pkg/metrics"
	"github.com/angelmondragon/threadhouse-backend/pkg/pubsub"
	"github.com/angelmondragon/threadhouse-backend/pkg/redis"
)

const emailGuardTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "mailer"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "mailer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.EmailSubscription,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer psClient.Close()
	requireResource(ctx, logg, "email subscription", psClient.EnsureEmailSubscription(ctx))

	sender, err := mailer.New(cfg.SMTP)
	requireResource(ctx, logg, "smtp sender", err)

	guard, err := redis.NewGuard(redisClient, emailGuardTTL, "email-job")
	requireResource(ctx, logg, "email guard", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	jobMetrics := metrics.NewJobMetrics(registry, "email_job")

	emailConsumer, err := notifications.NewConsumer(psClient.EmailSubscription(), sender, guard, jobMetrics, logg)
	requireResource(ctx, logg, "email consumer", err)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))

	svc, err := NewService(ServiceParams{
		Logger:   logg,
		Redis:    redisClient,
		PubSub:   psClient,
		Consumer: emailConsumer,
		MetricsServer: &http.Server{
			Addr:              ":" + cfg.Service.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	})
	requireResource(ctx, logg, "mailer service", err)

	logg.Info(ctx, "starting mailer")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "mailer exited with error", err)
		os.Exit(1)
	}
	logg.Info(ctx, "mailer shut down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}

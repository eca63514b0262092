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
	"go.uber.org/multierr"

	"github.com/angelmondragon/threadhouse-backend/api/controllers"
	"github.com/angelmondragon/threadhouse-backend/api/routes"
	"github.com/angelmondragon/threadhouse-backend/internal/auth"
	"github.com/angelmondragon/threadhouse-backend/internal/cart"
	"github.com/angelmondragon/threadhouse-backend/internal/customstyles"
	"github.com/angelmondragon/threadhouse-backend/internal/media"
	"github.com/angelmondragon/threadhouse-backend/internal/notifications"
	"github.com/angelmondragon/threadhouse-backend/internal/orders"
	"github.com/angelmondragon/threadhouse-backend/internal/payments"
	products "github.com/angelmondragon/threadhouse-backend/internal/products"
	"github.com/angelmondragon/threadhouse-backend/internal/users"
	stripewebhook "github.com/angelmondragon/threadhouse-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/threadhouse-backend/pkg/auth/session"
	"github.com/angelmondragon/threadhouse-backend/pkg/config"
	"github.com/angelmondragon/threadhouse-backend/pkg/db"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/mailer"
	"github.com/angelmondragon/threadhouse-backend/pkg/metrics"
	"github.com/angelmondragon/threadhouse-backend/pkg/migrate"
	"github.com/angelmondragon/threadhouse-backend/pkg/mongo"
	"github.com/angelmondragon/threadhouse-backend/pkg/pubsub"
	"github.com/angelmondragon/threadhouse-backend/pkg/redis"
	"github.com/angelmondragon/threadhouse-backend/pkg/storage/gcs"
	"github.com/angelmondragon/threadhouse-backend/pkg/stripe"
)

const (
	shutdownTimeout = 15 * time.Second
	webhookGuardTTL = 7 * 24 * time.Hour
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, cfg.App.IsDev(), logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	readiness := []controllers.ReadinessCheck{
		{Name: "db", Pinger: dbClient},
		{Name: "redis", Pinger: redisClient},
	}

	cartStore := cart.NewRepository(dbClient.DB())
	if cfg.Cart.UsesMongo() {
		mongoClient, err := mongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			return err
		}
		closers = append(closers, func() error { return mongoClient.Close(context.Background()) })
		collection := mongoClient.Collection(cfg.Mongo.Collection)
		if err := cart.EnsureMongoIndexes(ctx, collection); err != nil {
			return err
		}
		cartStore = cart.NewMongoStore(collection)
		readiness = append(readiness, controllers.ReadinessCheck{Name: "mongo", Pinger: mongoClient})
	}

	emails, closeEmails, err := newDispatcher(ctx, cfg, logg)
	if err != nil {
		return err
	}
	if closeEmails != nil {
		closers = append(closers, closeEmails)
	}

	productRepo := products.NewRepository(dbClient.DB())
	productService, err := products.NewService(productRepo)
	if err != nil {
		return err
	}

	usersRepo := users.NewRepository(dbClient.DB())
	usersService, err := users.NewService(usersRepo)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		Emails:         emails,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:    cartStore,
		Products: cart.NewCatalogLookup(productRepo),
		Pricing: cart.Pricing{
			GiftWrapSurcharge: cfg.Cart.GiftWrap(),
			BundlePrice:       cfg.Cart.Bundle(),
			BundleSize:        cfg.Cart.BundleSize,
			BundleCategory:    enums.ProductCategory(cfg.Cart.BundleCategory),
		},
		SyncReprice:     cfg.FeatureFlags.CartSyncReprice,
		ConflictRetries: cfg.Cart.ConflictRetries,
		Recorder:        metrics.NewCartMetrics(registry),
		Logger:          logg,
	})
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:       ordersRepo,
		Carts:      cartService,
		Emails:     emails,
		AdminEmail: cfg.SMTP.AdminTo,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	deps := routes.Deps{
		Sessions:    sessionManager,
		Idempotency: redisClient,
		Auth:        authService,
		Users:       usersService,
		Products:    productService,
		Cart:        cartService,
		Orders:      ordersService,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Gatherer:    registry,
	}

	if cfg.FeatureFlags.StripeEnabled {
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
		paymentsService, err := payments.NewService(payments.ServiceParams{
			Orders:  ordersRepo,
			Gateway: stripeClient,
			Emails:  emails,
			Logger:  logg,
		})
		if err != nil {
			return err
		}
		webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Payments: paymentsService, Logger: logg})
		if err != nil {
			return err
		}
		guard, err := redis.NewGuard(redisClient, webhookGuardTTL, "stripe-webhook")
		if err != nil {
			return err
		}
		deps.Payments = paymentsService
		deps.StripeClient = stripeClient
		deps.StripeWebhook = webhookService
		deps.WebhookGuard = guard
	}

	if cfg.FeatureFlags.ObjectStoreWrite {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return err
		}
		closers = append(closers, gcsClient.Close)
		mediaService, err := media.NewService(gcsClient, media.Limits{
			MaxFiles: cfg.Media.MaxProductImages,
			MaxBytes: cfg.Media.MaxUploadBytes(),
		}, logg)
		if err != nil {
			return err
		}
		customStyles, err := customstyles.NewService(customstyles.ServiceParams{
			Repo:   customstyles.NewRepository(dbClient.DB()),
			Media:  mediaService,
			Emails: emails,
			Logger: logg,
		})
		if err != nil {
			return err
		}
		deps.Media = mediaService
		deps.CustomStyles = customStyles
		readiness = append(readiness, controllers.ReadinessCheck{Name: "gcs", Pinger: gcsClient})
	}
	deps.Readiness = readiness

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"cart_store": cfg.Cart.Store,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newDispatcher picks how transactional email leaves the API: straight over
// SMTP, through the Pub/Sub email topic, or into the log when neither is set up.
func newDispatcher(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notifications.Dispatcher, func() error, error) {
	if cfg.FeatureFlags.DirectEmail {
		sender, err := mailer.New(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		dispatcher, err := notifications.NewDirectDispatcher(sender, logg)
		return dispatcher, nil, err
	}

	if cfg.GCP.ProjectID != "" {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, err
		}
		publisher := client.EmailPublisher()
		dispatcher, err := notifications.NewQueueDispatcher(publisher, logg)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return dispatcher, func() error {
			publisher.Stop()
			return client.Close()
		}, nil
	}

	logg.Warn(ctx, "no email transport configured; emails will only be logged")
	return notifications.NewLogDispatcher(logg), nil, nil
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pixelgrove/gamecrate-backend/api/routes"
	"github.com/pixelgrove/gamecrate-backend/internal/cart"
	checkoutsvc "github.com/pixelgrove/gamecrate-backend/internal/checkout"
	"github.com/pixelgrove/gamecrate-backend/internal/codes"
	"github.com/pixelgrove/gamecrate-backend/internal/loyalty"
	"github.com/pixelgrove/gamecrate-backend/internal/notify"
	"github.com/pixelgrove/gamecrate-backend/internal/orders"
	"github.com/pixelgrove/gamecrate-backend/internal/pricing"
	"github.com/pixelgrove/gamecrate-backend/internal/products"
	"github.com/pixelgrove/gamecrate-backend/pkg/config"
	"github.com/pixelgrove/gamecrate-backend/pkg/db"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
	"github.com/pixelgrove/gamecrate-backend/pkg/metrics"
	"github.com/pixelgrove/gamecrate-backend/pkg/migrate"
	"github.com/pixelgrove/gamecrate-backend/pkg/pubsub"
	"github.com/pixelgrove/gamecrate-backend/pkg/redis"
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

	notifier, cleanup, err := buildNotifier(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap notifier", err)
		os.Exit(1)
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	promoRepo := pricing.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	loyaltyRepo := loyalty.NewRepository(conn)
	codeRepo := codes.NewRepository(conn)

	cartService, err := cart.NewService(redisClient, productRepo, promoRepo, cfg.Checkout.CartTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	loyaltyService, err := loyalty.NewService(conn, loyaltyRepo, cfg.Loyalty)
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty service", err)
		os.Exit(1)
	}

	codesService, err := codes.NewService(codeRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create codes service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(conn, orderRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		conn,
		cartService,
		loyaltyService,
		codesService,
		productRepo,
		orderRepo,
		notifier,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			cartService,
			checkoutService,
			loyaltyService,
			codesService,
			ordersService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildNotifier prefers Pub/Sub when a GCP project is configured and
// falls back to log-only delivery for local runs.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notify.Notifier, func(), error) {
	if cfg.GCP.ProjectID == "" {
		notifier, err := notify.NewLogNotifier(logg)
		return notifier, func() {}, err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}

	notifier, err := notify.NewPubSubNotifier(pubsubClient.NotificationPublisher())
	if err != nil {
		_ = pubsubClient.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}
	return notifier, cleanup, nil
}

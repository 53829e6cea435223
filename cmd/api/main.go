package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/controllers"
	"github.com/faacuromano/control-gastronomicoV2-sub000/api/routes"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/businessdate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/identity"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/kitchen"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/orders"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform/pedidosya"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform/rappi"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/products"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/queue"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/sequence"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/shifts"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/stock"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/tenants"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/metrics"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/migrate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/pubsub"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/redis"
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

	psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	rappiAdapter, err := rappi.NewAdapter(cfg.Rappi, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rappi adapter", err)
		os.Exit(1)
	}
	peyaAdapter, err := pedidosya.NewAdapter(cfg.PedidosYa, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pedidosya adapter", err)
		os.Exit(1)
	}
	registry, err := platform.NewRegistry(rappiAdapter, peyaAdapter)
	if err != nil {
		logg.Error(context.Background(), "failed to build platform registry", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(context.Background(), "platforms", registry.Codes()), "platform adapters wired")

	publisher, err := queue.NewPublisher(psClient.WebhookJobsPublisher(), redisClient, cfg.Queue, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create queue publisher", err)
		os.Exit(1)
	}

	shiftsRepo := shifts.NewRepository(dbClient.DB())
	tenantsRepo := tenants.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	resolver, err := businessdate.NewResolver(cfg.Sequence.CutoffHour, shiftsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create business date resolver", err)
		os.Exit(1)
	}

	allocator, err := sequence.NewAllocator(cfg.Sequence, logg, m)
	if err != nil {
		logg.Error(context.Background(), "failed to create sequence allocator", err)
		os.Exit(1)
	}
	identitySvc, err := identity.NewService(allocator, cfg.Sequence, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	notifier, err := kitchen.NewNotifier(psClient.KitchenPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create kitchen notifier", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Tenants:  tenantsRepo,
		Products: productsRepo,
		Resolver: resolver,
		Identity: identitySvc,
		Stock:    stock.NewDeductor(),
		Kitchen:  notifier,
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	shiftsSvc, err := shifts.NewService(shiftsRepo, tenantsRepo, resolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shifts service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Registry:  registry,
		Publisher: publisher,
		Orders:    ordersSvc,
		Shifts:    shiftsSvc,
		Products:  productsRepo,
		Limiter:   redisClient,
		Metrics:   m,
		Gatherer:  promRegistry,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   psClient,
		},
	})

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
		Addr:    addr,
		Handler: handler,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "server shutdown error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

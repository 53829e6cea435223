package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/businessdate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/identity"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/ingestion"
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
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	m := metrics.New(prometheus.NewRegistry())

	rappiAdapter, err := rappi.NewAdapter(cfg.Rappi, logg)
	if err != nil {
		logg.Error(ctx, "failed to create rappi adapter", err)
		os.Exit(1)
	}
	peyaAdapter, err := pedidosya.NewAdapter(cfg.PedidosYa, logg)
	if err != nil {
		logg.Error(ctx, "failed to create pedidosya adapter", err)
		os.Exit(1)
	}
	registry, err := platform.NewRegistry(rappiAdapter, peyaAdapter)
	if err != nil {
		logg.Error(ctx, "failed to build platform registry", err)
		os.Exit(1)
	}

	shiftsRepo := shifts.NewRepository(dbClient.DB())
	tenantsRepo := tenants.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	tenantsSvc, err := tenants.NewService(tenantsRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create tenants service", err)
		os.Exit(1)
	}

	resolver, err := businessdate.NewResolver(cfg.Sequence.CutoffHour, shiftsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create business date resolver", err)
		os.Exit(1)
	}
	allocator, err := sequence.NewAllocator(cfg.Sequence, logg, m)
	if err != nil {
		logg.Error(ctx, "failed to create sequence allocator", err)
		os.Exit(1)
	}
	identitySvc, err := identity.NewService(allocator, cfg.Sequence, logg)
	if err != nil {
		logg.Error(ctx, "failed to create identity service", err)
		os.Exit(1)
	}

	notifier, err := kitchen.NewNotifier(psClient.KitchenPublisher(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create kitchen notifier", err)
		os.Exit(1)
	}

	audit, err := ingestion.NewRecorder(dbClient.DB(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create audit recorder", err)
		os.Exit(1)
	}

	pipeline, err := ingestion.NewPipeline(ingestion.PipelineParams{
		Registry: registry,
		Tenants:  tenantsSvc,
		Products: productsRepo,
		Orders:   ordersRepo,
		Tx:       dbClient,
		Resolver: resolver,
		Identity: identitySvc,
		Stock:    stock.NewDeductor(),
		Kitchen:  notifier,
		Audit:    audit,
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ingestion pipeline", err)
		os.Exit(1)
	}

	consumer, err := queue.NewConsumer(psClient.WebhookJobsSubscription(), pipeline, logg)
	if err != nil {
		logg.Error(ctx, "failed to create consumer", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting webhook worker")
	if err := consumer.Run(ctx); err != nil {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shutting down gracefully")
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	invmemory "github.com/dealgrid/ordercore/internal/domains/inventory/adapters/memory"
	invpostgres "github.com/dealgrid/ordercore/internal/domains/inventory/adapters/persistence/postgres"
	invapp "github.com/dealgrid/ordercore/internal/domains/inventory/application"
	invports "github.com/dealgrid/ordercore/internal/domains/inventory/ports"
	ordershttp "github.com/dealgrid/ordercore/internal/domains/orders/adapters/http"
	ordersmemory "github.com/dealgrid/ordercore/internal/domains/orders/adapters/memory"
	"github.com/dealgrid/ordercore/internal/domains/orders/adapters/notify"
	ordersobs "github.com/dealgrid/ordercore/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/dealgrid/ordercore/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/dealgrid/ordercore/internal/domains/orders/application"
	ordersports "github.com/dealgrid/ordercore/internal/domains/orders/ports"
	"github.com/dealgrid/ordercore/internal/platform/migrations"
	platformobservability "github.com/dealgrid/ordercore/internal/platform/observability"
	platformpostgres "github.com/dealgrid/ordercore/internal/platform/postgres"
)

// Run boots the order coordination HTTP API with observability, storage, and
// the expiry sweeper wired from environment configuration.
func Run(ctx context.Context) error {
	const serviceName = "ordercore-api"
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backend, cleanup := buildBackend(ctx, cfg, logger)
	defer cleanup()

	notifier := buildNotifier(cfg, logger)
	defer notifier.Close()

	inventoryService := invapp.NewService(backend.itemRepo, backend.engine)
	coreOrderService := ordersapp.NewService(backend.orderRepo, backend.guard, backend.engine, notifier, backend.tx)
	orderService := ordersobs.New(
		coreOrderService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	if !cfg.SweepDisabled {
		worker := ordersapp.NewExpiryWorker(orderService, backend.orderRepo, backend.guard, cfg.HoldTTL, cfg.SweepInterval, cfg.SweepBatchSize, logger)
		go func() {
			err := worker.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("expiry worker exited", slog.String("error", err.Error()))
				return
			}
			logger.Info("expiry worker stopped")
		}()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	ordershttp.NewHandler(orderService, inventoryService).Register(router)

	addr := ":" + cfg.Port
	logger.Info("order API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("order API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// backend groups the storage-side ports so postgres and memory wiring stay symmetric.
type backend struct {
	itemRepo  invports.Repository
	engine    invports.ReservationEngine
	orderRepo ordersports.Repository
	guard     ordersports.IdempotencyGuard
	tx        ordersports.TxRunner
}

func buildBackend(ctx context.Context, cfg Config, logger *slog.Logger) (backend, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory storage")
		return memoryBackend(cfg), func() {}
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return memoryBackend(cfg), func() {}
	}
	if err := migrations.Run(db); err != nil {
		logger.Warn("failed to run migrations, falling back to memory", slog.String("error", err.Error()))
		return memoryBackend(cfg), func() {}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("failed to unwrap postgres connection, falling back to memory", slog.String("error", err.Error()))
		return memoryBackend(cfg), func() {}
	}
	logger.Info("storage configured with postgres")
	return backend{
		itemRepo:  invpostgres.NewRepository(db),
		engine:    invpostgres.NewEngine(db, cfg.LockWait),
		orderRepo: orderspostgres.NewRepository(db),
		guard:     orderspostgres.NewIdempotencyStore(db, cfg.IdempotencyTTL),
		tx:        platformpostgres.NewTxManager(db),
	}, func() { _ = sqlDB.Close() }
}

func memoryBackend(cfg Config) backend {
	store := invmemory.NewStore()
	return backend{
		itemRepo:  store,
		engine:    store,
		orderRepo: ordersmemory.NewRepository(),
		guard:     ordersmemory.NewIdempotencyGuard(cfg.IdempotencyTTL),
		tx:        ordersmemory.TxRunner{},
	}
}

// closableNotifier lets the kafka and slog notifiers share a shutdown path.
type closableNotifier interface {
	ordersports.Notifier
	Close() error
}

func buildNotifier(cfg Config, logger *slog.Logger) closableNotifier {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, transition events will only be logged")
		return notify.NewSlogNotifier(logger)
	}
	logger.Info("transition events publishing to kafka", slog.String("topic", cfg.KafkaTopic))
	return notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}

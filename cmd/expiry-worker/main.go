package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dealgrid/ordercore/internal/app/api"
	invpostgres "github.com/dealgrid/ordercore/internal/domains/inventory/adapters/persistence/postgres"
	"github.com/dealgrid/ordercore/internal/domains/orders/adapters/notify"
	orderspostgres "github.com/dealgrid/ordercore/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/dealgrid/ordercore/internal/domains/orders/application"
	ordersports "github.com/dealgrid/ordercore/internal/domains/orders/ports"
	"github.com/dealgrid/ordercore/internal/platform/migrations"
	platformpostgres "github.com/dealgrid/ordercore/internal/platform/postgres"
)

// Standalone sweeper for deployments that run the API with
// EXPIRY_SWEEP_DISABLED=1 and scale the sweep loop separately.
func main() {
	_ = godotenv.Load()
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot sweep expired orders")
	}
	if err := migrations.Run(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	var notifier ordersports.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		notifier = notify.NewSlogNotifier(logger)
	}

	orderRepo := orderspostgres.NewRepository(db)
	guard := orderspostgres.NewIdempotencyStore(db, cfg.IdempotencyTTL)
	engine := invpostgres.NewEngine(db, cfg.LockWait)
	tx := platformpostgres.NewTxManager(db)
	svc := ordersapp.NewService(orderRepo, guard, engine, notifier, tx)

	worker := ordersapp.NewExpiryWorker(svc, orderRepo, guard, cfg.HoldTTL, cfg.SweepInterval, cfg.SweepBatchSize, logger)
	logger.Info("expiry worker started",
		slog.Duration("hold_ttl", cfg.HoldTTL),
		slog.Duration("interval", cfg.SweepInterval))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("expiry worker exited: %v", err)
	}
	logger.Info("expiry worker stopped")
}

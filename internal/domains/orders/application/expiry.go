package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

const (
	DefaultHoldTTL        = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
	DefaultSweepBatchSize = 100
)

// ExpiryWorker cancels orders whose reservation hold outlived the configured
// age while still pending, driving each through the coordinator's cancellation
// path so release and notification semantics stay identical to a manual
// cancellation. It also prunes expired idempotency records.
type ExpiryWorker struct {
	svc       ports.Service
	repo      ports.Repository
	guard     ports.IdempotencyGuard
	holdTTL   time.Duration
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewExpiryWorker wires the worker; zero durations and sizes fall back to the
// package defaults.
func NewExpiryWorker(svc ports.Service, repo ports.Repository, guard ports.IdempotencyGuard, holdTTL, interval time.Duration, batchSize int, logger *slog.Logger) *ExpiryWorker {
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryWorker{
		svc:       svc,
		repo:      repo,
		guard:     guard,
		holdTTL:   holdTTL,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (w *ExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.sweepAndLog(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ExpiryWorker) sweepAndLog(ctx context.Context) {
	cancelled, err := w.Sweep(ctx)
	if err != nil {
		w.logger.Error("expiry sweep failed", slog.String("error", err.Error()))
		return
	}
	if cancelled > 0 {
		w.logger.Info("expired orders cancelled", slog.Int("count", cancelled))
	}
	if w.guard != nil {
		purged, err := w.guard.PurgeExpired(ctx)
		if err != nil {
			w.logger.Error("idempotency purge failed", slog.String("error", err.Error()))
		} else if purged > 0 {
			w.logger.Info("idempotency records purged", slog.Int64("count", purged))
		}
	}
}

// Sweep cancels expired pending orders in bounded batches, re-querying after
// each batch until none remain so a large backlog cannot starve newly
// expiring orders. A transient failure on one order is logged and skipped.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.holdTTL)
	total := 0
	for {
		ids, err := w.repo.ListExpiredPending(ctx, cutoff, w.batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		progressed := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			if w.cancelExpired(ctx, id) {
				progressed++
				total++
			}
		}
		// Every order in the batch failed transiently; bail out rather than
		// re-reading the same page forever.
		if progressed == 0 {
			return total, nil
		}
	}
}

func (w *ExpiryWorker) cancelExpired(ctx context.Context, id string) bool {
	_, err := w.svc.UpdateStatus(ctx, types.StatusUpdateInput{
		OrderID: id,
		Target:  domain.StatusCancelled,
		Actor:   domain.ActorSystem,
		Reason:  "expired",
	})
	if err == nil {
		return true
	}
	var invalid domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		// The order moved on between the scan and the cancellation; nothing
		// to do for it anymore.
		return true
	}
	w.logger.Warn("skipping expired order", slog.String("order_id", id), slog.String("error", err.Error()))
	return false
}

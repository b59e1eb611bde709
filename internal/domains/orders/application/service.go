package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	invdomain "github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	invports "github.com/dealgrid/ordercore/internal/domains/inventory/ports"
	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

const (
	// Lock timeouts and stale reads are retried transparently a small bounded
	// number of times before being surfaced to the channel.
	lockRetryAttempts = 3
	lockRetryBackoff  = 25 * time.Millisecond
)

// Service is the order coordinator: the single public façade every channel
// calls through. One transaction per logical operation; no partial state is
// ever committed on any error path.
type Service struct {
	repo     ports.Repository
	guard    ports.IdempotencyGuard
	engine   invports.ReservationEngine
	notifier ports.Notifier
	tx       ports.TxRunner
	newID    func() string
	now      func() time.Time
}

// NewService wires the coordinator with its collaborators.
func NewService(repo ports.Repository, guard ports.IdempotencyGuard, engine invports.ReservationEngine, notifier ports.Notifier, tx ports.TxRunner) *Service {
	return &Service{
		repo:     repo,
		guard:    guard,
		engine:   engine,
		notifier: notifier,
		tx:       tx,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// CreateOrder reserves stock for every line atomically, persists the order in
// pending status, and records the idempotency key, all in one transaction. A
// retried key returns the original order with no new reservation and no
// duplicate notification.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*domain.Order, error) {
	if input.Channel == "" || input.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: channel and idempotency key are required", ErrInvalidInput)
	}
	lines, err := reservationLines(input.Lines)
	if err != nil {
		return nil, mapError(err)
	}
	if existing, err := s.recordedOrder(ctx, input.Channel, input.IdempotencyKey); existing != nil || err != nil {
		return existing, err
	}

	var created *domain.Order
	err = s.withLockRetry(ctx, func(ctx context.Context) error {
		created = nil
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			reserved, err := s.engine.Reserve(ctx, lines)
			if err != nil {
				return err
			}
			order, err := buildOrder(s.newID(), input, reserved)
			if err != nil {
				// Postgres rolls the reservation back with the transaction;
				// the memory backend needs the explicit mirror operation.
				_ = s.engine.Release(ctx, lines)
				return mapError(err)
			}
			saved, err := s.repo.Create(ctx, order)
			if err != nil {
				_ = s.engine.Release(ctx, lines)
				return err
			}
			if err := s.guard.Record(ctx, input.Channel, input.IdempotencyKey, saved.ID); err != nil {
				_ = s.engine.Release(ctx, lines)
				return err
			}
			created = saved
			return nil
		})
	})
	if errors.Is(err, ports.ErrDuplicateKey) {
		// Lost the race against a concurrent request with the same key:
		// answer with its order instead.
		existing, lookupErr := s.recordedOrder(ctx, input.Channel, input.IdempotencyKey)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.emit(ctx, created, "", "")
	return created, nil
}

// UpdateStatus drives one state-machine edge. For cancellation and rejection
// the reserved quantity is released within the same transaction as the status
// write. Exactly one notification is emitted per applied transition; the
// internal ready milestone and idempotent duplicate completions emit none.
func (s *Service) UpdateStatus(ctx context.Context, input types.StatusUpdateInput) (*domain.Order, error) {
	if input.OrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	var (
		updated *domain.Order
		prev    domain.Status
		changed bool
	)
	err := s.withLockRetry(ctx, func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			order, err := s.repo.GetByIDForUpdate(ctx, input.OrderID)
			if err != nil {
				return err
			}
			prev = order.Status
			changed, err = order.TransitionTo(input.Target, input.Actor, input.Reason)
			if err != nil {
				return err
			}
			if !changed {
				updated = order
				return nil
			}
			updated, err = s.repo.UpdateStatus(ctx, order, prev)
			if err != nil {
				return err
			}
			if domain.ReleasesInventory(input.Target) {
				// Release only after the compare-and-swap: a caller that lost
				// the race to a concurrent terminal write must not hand the
				// stock back a second time on the memory backend.
				return s.engine.Release(ctx, releaseLines(order.Lines))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if changed && domain.NotifiesOutward(input.Target) {
		s.emit(ctx, updated, prev, input.Reason)
	}
	return updated, nil
}

// ApplyPaymentStatus records the payment collaborator's callback. Updates
// against a terminal order are accepted as a no-op; payment state changes are
// not status transitions and emit no notification.
func (s *Service) ApplyPaymentStatus(ctx context.Context, input types.PaymentUpdateInput) (*domain.Order, error) {
	if input.OrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	var updated *domain.Order
	err := s.withLockRetry(ctx, func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			order, err := s.repo.GetByIDForUpdate(ctx, input.OrderID)
			if err != nil {
				return err
			}
			changed, err := order.SetPaymentStatus(input.Status, input.ProofRef)
			if err != nil {
				return mapError(err)
			}
			if !changed {
				updated = order
				return nil
			}
			updated, err = s.repo.UpdatePayment(ctx, order)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetOrder loads a single order.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// CustomerOrders returns a customer's orders for channel display.
func (s *Service) CustomerOrders(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *Service) recordedOrder(ctx context.Context, channel, key string) (*domain.Order, error) {
	orderID, ok, err := s.guard.Lookup(ctx, channel, key)
	if err != nil || !ok {
		return nil, err
	}
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) withLockRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		err = op(ctx)
		if !errors.Is(err, invdomain.ErrLockTimeout) && !errors.Is(err, ports.ErrStaleOrder) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(lockRetryBackoff << attempt):
		}
	}
	return err
}

// emit runs after commit. Delivery failures are the dispatcher adapter's
// concern; a committed transition is never rolled back over them.
func (s *Service) emit(ctx context.Context, order *domain.Order, previous domain.Status, reason string) {
	if s.notifier == nil || order == nil {
		return
	}
	_ = s.notifier.Notify(ctx, ports.TransitionEvent{
		OrderID:        order.ID,
		OrderType:      order.Type,
		PreviousStatus: previous,
		NewStatus:      order.Status,
		CustomerID:     order.CustomerID,
		StoreID:        order.StoreID,
		Reason:         reason,
		OccurredAt:     s.now(),
	})
}

// reservationLines merges duplicate item ids so the historical cart and
// single-item shapes land on the same atomic reservation path.
func reservationLines(lines []types.LineInput) ([]invdomain.Line, error) {
	if len(lines) == 0 {
		return nil, domain.ErrNoLines
	}
	merged := make([]invdomain.Line, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.ItemID <= 0 || line.Quantity <= 0 {
			return nil, domain.ErrInvalidLine
		}
		if at, seen := index[line.ItemID]; seen {
			merged[at].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(merged)
		merged = append(merged, invdomain.Line{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return merged, nil
}

func releaseLines(lines []domain.Line) []invdomain.Line {
	out := make([]invdomain.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, invdomain.Line{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return out
}

func buildOrder(id string, input types.CreateOrderInput, reserved []invdomain.ReservedLine) (*domain.Order, error) {
	prices := make(map[int64]int64, len(reserved))
	quantities := make(map[int64]int, len(reserved))
	for _, line := range reserved {
		prices[line.ItemID] = line.PriceCents
		quantities[line.ItemID] = line.Quantity
	}
	orderLines := make([]domain.Line, 0, len(reserved))
	seen := make(map[int64]bool, len(reserved))
	// Preserve the request's line order for display; the reservation engine
	// returns lines in lock order.
	for _, line := range input.Lines {
		if seen[line.ItemID] {
			continue
		}
		seen[line.ItemID] = true
		orderLines = append(orderLines, domain.Line{
			ItemID:     line.ItemID,
			Quantity:   quantities[line.ItemID],
			PriceCents: prices[line.ItemID],
		})
	}
	var address string
	var fee int64
	if input.Delivery != nil {
		address = input.Delivery.Address
		fee = input.Delivery.FeeCents
	}
	order, err := domain.NewOrder(id, input.Type, input.StoreID, input.CustomerID, orderLines, address, fee)
	if err != nil {
		return nil, err
	}
	order.IdempotencyKey = input.IdempotencyKey
	return order, nil
}

var _ ports.Service = (*Service)(nil)

package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps orders in memory for tests and the no-database fallback.
// UpdateStatus compare-and-swaps against the previously observed status so
// concurrent transitions surface ports.ErrStaleOrder like the postgres
// adapter does.
type Repository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

// NewRepository creates an empty order repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]*domain.Order)}
}

// Create persists a new order.
func (r *Repository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return nil, errors.New("order id already exists")
	}
	now := time.Now()
	stored := clone(order)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.orders[order.ID] = stored
	return clone(stored), nil
}

// GetByID fetches an order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(id)
}

// GetByIDForUpdate behaves like GetByID; the memory backend has no row locks.
func (r *Repository) GetByIDForUpdate(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(id)
}

// UpdateStatus persists the new status guarded by the previously observed one.
func (r *Repository) UpdateStatus(_ context.Context, order *domain.Order, previous domain.Status) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.Status != previous {
		return nil, ports.ErrStaleOrder
	}
	stored.Status = order.Status
	stored.CancelReason = order.CancelReason
	stored.UpdatedAt = time.Now()
	return clone(stored), nil
}

// UpdatePayment persists the payment fields.
func (r *Repository) UpdatePayment(_ context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	stored.PaymentStatus = order.PaymentStatus
	stored.PaymentProofRef = order.PaymentProofRef
	stored.UpdatedAt = time.Now()
	return clone(stored), nil
}

// ListByCustomer returns a customer's orders, newest first.
func (r *Repository) ListByCustomer(_ context.Context, customerID int64) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			out = append(out, clone(order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListExpiredPending pages pending orders older than the cutoff, oldest first.
func (r *Repository) ListExpiredPending(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*domain.Order
	for _, order := range r.orders {
		if order.Status == domain.StatusPending && !order.CreatedAt.After(cutoff) {
			expired = append(expired, order)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, 0, len(expired))
	for _, order := range expired {
		ids = append(ids, order.ID)
	}
	return ids, nil
}

func (r *Repository) find(id string) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return clone(order), nil
}

func clone(order *domain.Order) *domain.Order {
	copied := *order
	copied.Lines = make([]domain.Line, len(order.Lines))
	copy(copied.Lines, order.Lines)
	return &copied
}

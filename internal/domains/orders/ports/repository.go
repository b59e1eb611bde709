package ports

import (
	"context"
	"errors"
	"time"

	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrStaleOrder signals the order moved under a concurrent writer between
	// read and write. Transient; the coordinator retries the operation.
	ErrStaleOrder = errors.New("order was modified concurrently")
)

// Repository persists orders and their item lines. It is consumed only by the
// coordinator; no channel holds write access to order rows.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetByIDForUpdate locks the order row for the duration of the ambient
	// transaction so concurrent transitions serialize.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error)
	// UpdateStatus persists the new status guarded by the previously observed
	// one; a mismatch returns ErrStaleOrder.
	UpdateStatus(ctx context.Context, order *domain.Order, previous domain.Status) (*domain.Order, error)
	UpdatePayment(ctx context.Context, order *domain.Order) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error)
	// ListExpiredPending pages order ids still pending past the cutoff,
	// oldest first, bounded by limit.
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

package ports

import (
	"context"
	"errors"

	"github.com/dealgrid/ordercore/internal/domains/inventory/domain"
)

var ErrItemNotFound = errors.New("inventory item not found")

// Repository persists item listings. It never touches available quantity
// outside item creation; stock movement belongs to the ReservationEngine.
type Repository interface {
	Save(ctx context.Context, item *domain.Item) (*domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	ListByStore(ctx context.Context, storeID int64) ([]*domain.Item, error)
}

// ReservationEngine decrements stock for a set of lines as one atomic unit,
// or not at all. Release is the mirror operation and always succeeds; it does
// not assume the released quantity was reserved by the same caller.
type ReservationEngine interface {
	Reserve(ctx context.Context, lines []domain.Line) ([]domain.ReservedLine, error)
	Release(ctx context.Context, lines []domain.Line) error
}

// Service exposes the merchant-facing inventory use cases.
type Service interface {
	ListItem(ctx context.Context, storeID int64, name string, priceCents int64, available int) (*domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	StoreItems(ctx context.Context, storeID int64) ([]*domain.Item, error)
	Restock(ctx context.Context, id int64, quantity int) (*domain.Item, error)
}

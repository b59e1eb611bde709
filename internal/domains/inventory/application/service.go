package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	"github.com/dealgrid/ordercore/internal/domains/inventory/ports"
)

// ErrInvalidInput signals the request violated a domain invariant.
var ErrInvalidInput = errors.New("invalid inventory input")

// Service orchestrates the merchant-facing inventory use cases. Stock movement
// always goes through the reservation engine so the ledger has a single writer.
type Service struct {
	repo   ports.Repository
	engine ports.ReservationEngine
}

// NewService wires the inventory service with its dependencies.
func NewService(repo ports.Repository, engine ports.ReservationEngine) *Service {
	return &Service{repo: repo, engine: engine}
}

// ListItem creates a new offer listing with its initial stock.
func (s *Service) ListItem(ctx context.Context, storeID int64, name string, priceCents int64, available int) (*domain.Item, error) {
	item, err := domain.NewItem(storeID, name, priceCents, available)
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.Save(ctx, item)
}

// GetItem loads a single listing.
func (s *Service) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	return s.repo.GetByID(ctx, id)
}

// StoreItems returns all listings for one store.
func (s *Service) StoreItems(ctx context.Context, storeID int64) ([]*domain.Item, error) {
	return s.repo.ListByStore(ctx, storeID)
}

// Restock adds quantity back to an existing listing via the engine's release
// primitive, keeping the single-writer rule on available quantity.
func (s *Service) Restock(ctx context.Context, id int64, quantity int) (*domain.Item, error) {
	if quantity <= 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.engine.Release(ctx, []domain.Line{{ItemID: id, Quantity: quantity}}); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidStoreID) ||
		errors.Is(err, domain.ErrInvalidName) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrNegativeStock) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

var _ ports.Service = (*Service)(nil)

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	"github.com/dealgrid/ordercore/internal/domains/inventory/ports"
)

// Store keeps the stock ledger in memory behind one mutex, mirroring the
// postgres adapter's semantics: reservations are all-or-nothing and releases
// always succeed. It backs tests and the no-database fallback.
type Store struct {
	mu     sync.Mutex
	items  map[int64]*domain.Item
	nextID int64
}

// NewStore creates an empty ledger.
func NewStore() *Store {
	return &Store{items: make(map[int64]*domain.Item)}
}

// Save inserts or updates a listing, assigning ids on first write.
func (s *Store) Save(_ context.Context, item *domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if item.ID == 0 {
		s.nextID++
		item.ID = s.nextID
		item.CreatedAt = now
	} else if s.nextID < item.ID {
		s.nextID = item.ID
	}
	if existing, ok := s.items[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
	}
	item.UpdatedAt = now
	stored := *item
	s.items[item.ID] = &stored
	out := stored
	return &out, nil
}

// GetByID fetches a listing by identifier.
func (s *Store) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ports.ErrItemNotFound
	}
	out := *item
	return &out, nil
}

// ListByStore returns a store's listings ordered by id.
func (s *Store) ListByStore(_ context.Context, storeID int64) ([]*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Item
	for _, item := range s.items {
		if item.StoreID == storeID {
			clone := *item
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Reserve validates sufficiency for every line while holding the ledger lock
// and decrements all of them as one unit, or none.
func (s *Store) Reserve(_ context.Context, lines []domain.Line) ([]domain.ReservedLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := sortedLines(lines)
	for _, line := range sorted {
		item, ok := s.items[line.ItemID]
		if !ok {
			return nil, ports.ErrItemNotFound
		}
		if item.Available < line.Quantity {
			return nil, domain.InsufficientStockError{
				ItemID:    line.ItemID,
				Requested: line.Quantity,
				Available: item.Available,
			}
		}
	}
	reserved := make([]domain.ReservedLine, 0, len(sorted))
	now := time.Now()
	for _, line := range sorted {
		item := s.items[line.ItemID]
		item.Available -= line.Quantity
		item.UpdatedAt = now
		reserved = append(reserved, domain.ReservedLine{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			PriceCents: item.PriceCents,
		})
	}
	return reserved, nil
}

// Release adds quantity back. Unknown items are skipped so release never
// fails for the caller.
func (s *Store) Release(_ context.Context, lines []domain.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, line := range lines {
		if item, ok := s.items[line.ItemID]; ok && line.Quantity > 0 {
			item.Available += line.Quantity
			item.UpdatedAt = now
		}
	}
	return nil
}

func sortedLines(lines []domain.Line) []domain.Line {
	out := make([]domain.Line, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

var (
	_ ports.Repository        = (*Store)(nil)
	_ ports.ReservationEngine = (*Store)(nil)
)

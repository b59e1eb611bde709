package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidStoreID  = errors.New("store id must be greater than zero")
	ErrInvalidName     = errors.New("item name is required")
	ErrInvalidPrice    = errors.New("unit price must be greater than zero")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNegativeStock   = errors.New("available quantity cannot be negative")
)

// ErrLockTimeout signals the engine could not acquire the row locks within the
// configured wait. Transient; safe for the caller to retry with backoff.
var ErrLockTimeout = errors.New("timed out waiting for inventory locks")

// Item is the stock ledger for one purchasable offer listed by a merchant.
// Available is mutated only through the reservation engine.
type Item struct {
	ID         int64
	StoreID    int64
	Name       string
	PriceCents int64
	Available  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewItem validates and constructs an item listing with its initial stock.
func NewItem(storeID int64, name string, priceCents int64, available int) (*Item, error) {
	item := &Item{
		StoreID:    storeID,
		Name:       name,
		PriceCents: priceCents,
		Available:  available,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate enforces invariants on the ledger row.
func (i *Item) Validate() error {
	if i.StoreID <= 0 {
		return ErrInvalidStoreID
	}
	if i.Name == "" {
		return ErrInvalidName
	}
	if i.PriceCents <= 0 {
		return ErrInvalidPrice
	}
	if i.Available < 0 {
		return ErrNegativeStock
	}
	return nil
}

// Line is one (item, quantity) pair of a reservation request.
type Line struct {
	ItemID   int64
	Quantity int
}

// ReservedLine is a committed reservation line carrying the unit price read
// from the locked ledger row.
type ReservedLine struct {
	ItemID     int64
	Quantity   int
	PriceCents int64
}

// InsufficientStockError names the first line whose requested quantity exceeds
// the item's available quantity. The whole reservation aborts; nothing is held.
type InsufficientStockError struct {
	ItemID    int64
	Requested int
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

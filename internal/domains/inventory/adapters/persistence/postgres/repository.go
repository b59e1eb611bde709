package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	"github.com/dealgrid/ordercore/internal/domains/inventory/ports"
	platformpostgres "github.com/dealgrid/ordercore/internal/platform/postgres"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists item listings in PostgreSQL using GORM. Available
// quantity is written here only at creation; afterwards it belongs to the
// reservation engine.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed listing repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// itemRecord maps the ledger row to a relational table.
type itemRecord struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	StoreID    int64     `gorm:"column:store_id;index"`
	Name       string    `gorm:"column:name"`
	PriceCents int64     `gorm:"column:price_cents"`
	Available  int       `gorm:"column:available"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (itemRecord) TableName() string { return "inventory_items" }

// Save inserts a listing or updates its merchant-editable fields. Stock is
// deliberately excluded from the conflict assignments.
func (r *Repository) Save(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.New("item is nil")
	}
	record := toRecord(item)
	db := platformpostgres.HandleFromContext(ctx, r.db)
	if err := db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"store_id":    record.StoreID,
				"name":        record.Name,
				"price_cents": record.PriceCents,
				"updated_at":  gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches a listing by identifier.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record itemRecord
	db := platformpostgres.HandleFromContext(ctx, r.db)
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrItemNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// ListByStore returns a store's listings ordered by id.
func (r *Repository) ListByStore(ctx context.Context, storeID int64) ([]*domain.Item, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []itemRecord
	db := platformpostgres.HandleFromContext(ctx, r.db)
	if err := db.Where("store_id = ?", storeID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]*domain.Item, 0, len(records))
	for i := range records {
		items = append(items, records[i].toDomain())
	}
	return items, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres inventory repository not configured")
	}
	return nil
}

func toRecord(item *domain.Item) itemRecord {
	return itemRecord{
		ID:         item.ID,
		StoreID:    item.StoreID,
		Name:       item.Name,
		PriceCents: item.PriceCents,
		Available:  item.Available,
	}
}

func (r itemRecord) toDomain() *domain.Item {
	return &domain.Item{
		ID:         r.ID,
		StoreID:    r.StoreID,
		Name:       r.Name,
		PriceCents: r.PriceCents,
		Available:  r.Available,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
	platformpostgres "github.com/dealgrid/ordercore/internal/platform/postgres"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders and their item lines in PostgreSQL using GORM.
// Status writes are guarded by the previously observed status so a lost
// update can never slip through.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed order repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate to a relational table.
type orderRecord struct {
	ID               string            `gorm:"primaryKey;column:id;size:36"`
	Type             string            `gorm:"column:type;type:varchar(16)"`
	Status           string            `gorm:"column:status;type:varchar(32);index:idx_orders_status_created"`
	PaymentStatus    string            `gorm:"column:payment_status;type:varchar(32)"`
	StoreID          int64             `gorm:"column:store_id;index"`
	CustomerID       int64             `gorm:"column:customer_id;index"`
	TotalCents       int64             `gorm:"column:total_cents"`
	DeliveryFeeCents int64             `gorm:"column:delivery_fee_cents"`
	DeliveryAddress  string            `gorm:"column:delivery_address"`
	IdempotencyKey   string            `gorm:"column:idempotency_key;size:128"`
	PaymentProofRef  string            `gorm:"column:payment_proof_ref"`
	CancelReason     string            `gorm:"column:cancel_reason"`
	CreatedAt        time.Time         `gorm:"column:created_at;index:idx_orders_status_created"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
	Lines            []orderLineRecord `gorm:"foreignKey:OrderID;references:ID"`
}

func (orderRecord) TableName() string { return "orders" }

// orderLineRecord maps one immutable item line. Position preserves the
// request's display order.
type orderLineRecord struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID    string `gorm:"column:order_id;size:36;index"`
	ItemID     int64  `gorm:"column:item_id"`
	Quantity   int    `gorm:"column:quantity"`
	PriceCents int64  `gorm:"column:price_cents"`
	Position   int    `gorm:"column:position"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

// Create inserts the order and its lines.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	db := platformpostgres.HandleFromContext(ctx, r.db)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches an order with its lines.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate locks the order row until the ambient transaction ends.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id string, forUpdate bool) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := platformpostgres.HandleFromContext(ctx, r.db)
	query := db
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record orderRecord
	if err := query.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	if err := db.Where("order_id = ?", id).Order("position").Find(&record.Lines).Error; err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// UpdateStatus persists the new status guarded by the previously observed
// one. Lines are immutable and never rewritten here.
func (r *Repository) UpdateStatus(ctx context.Context, order *domain.Order, previous domain.Status) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := platformpostgres.HandleFromContext(ctx, r.db)
	result := db.Model(&orderRecord{}).
		Where("id = ? AND status = ?", order.ID, string(previous)).
		UpdateColumns(map[string]any{
			"status":        string(order.Status),
			"cancel_reason": order.CancelReason,
			"updated_at":    gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, order.ID); errors.Is(err, ports.ErrNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrStaleOrder
	}
	return r.GetByID(ctx, order.ID)
}

// UpdatePayment persists the payment fields.
func (r *Repository) UpdatePayment(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := platformpostgres.HandleFromContext(ctx, r.db)
	result := db.Model(&orderRecord{}).
		Where("id = ?", order.ID).
		UpdateColumns(map[string]any{
			"payment_status":    string(order.PaymentStatus),
			"payment_proof_ref": order.PaymentProofRef,
			"updated_at":        gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.GetByID(ctx, order.ID)
}

// ListByCustomer returns a customer's orders, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := platformpostgres.HandleFromContext(ctx, r.db)
	var records []orderRecord
	if err := db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

// ListExpiredPending pages pending orders older than the cutoff, oldest first.
func (r *Repository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	db := platformpostgres.HandleFromContext(ctx, r.db)
	var ids []string
	if err := db.Model(&orderRecord{}).
		Where("status = ? AND created_at <= ?", string(domain.StatusPending), cutoff).
		Order("created_at").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	record := orderRecord{
		ID:               order.ID,
		Type:             string(order.Type),
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		StoreID:          order.StoreID,
		CustomerID:       order.CustomerID,
		TotalCents:       order.TotalCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		DeliveryAddress:  order.DeliveryAddress,
		IdempotencyKey:   order.IdempotencyKey,
		PaymentProofRef:  order.PaymentProofRef,
		CancelReason:     order.CancelReason,
	}
	for i, line := range order.Lines {
		record.Lines = append(record.Lines, orderLineRecord{
			OrderID:    order.ID,
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
			Position:   i,
		})
	}
	return record
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID:               r.ID,
		Type:             domain.Type(r.Type),
		Status:           domain.Status(r.Status),
		PaymentStatus:    domain.PaymentStatus(r.PaymentStatus),
		StoreID:          r.StoreID,
		CustomerID:       r.CustomerID,
		TotalCents:       r.TotalCents,
		DeliveryFeeCents: r.DeliveryFeeCents,
		DeliveryAddress:  r.DeliveryAddress,
		IdempotencyKey:   r.IdempotencyKey,
		PaymentProofRef:  r.PaymentProofRef,
		CancelReason:     r.CancelReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	for _, line := range r.Lines {
		order.Lines = append(order.Lines, domain.Line{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
		})
	}
	return order
}

package migrations

import (
	"time"

	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&itemRecord{},
		&orderRecord{},
		&orderLineRecord{},
		&idempotencyRecord{},
	)
}

// Item schema mirrors the inventory Postgres adapter.
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

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID               string    `gorm:"primaryKey;column:id;size:36"`
	Type             string    `gorm:"column:type;type:varchar(16)"`
	Status           string    `gorm:"column:status;type:varchar(32);index:idx_orders_status_created"`
	PaymentStatus    string    `gorm:"column:payment_status;type:varchar(32)"`
	StoreID          int64     `gorm:"column:store_id;index"`
	CustomerID       int64     `gorm:"column:customer_id;index"`
	TotalCents       int64     `gorm:"column:total_cents"`
	DeliveryFeeCents int64     `gorm:"column:delivery_fee_cents"`
	DeliveryAddress  string    `gorm:"column:delivery_address"`
	IdempotencyKey   string    `gorm:"column:idempotency_key;size:128"`
	PaymentProofRef  string    `gorm:"column:payment_proof_ref"`
	CancelReason     string    `gorm:"column:cancel_reason"`
	CreatedAt        time.Time `gorm:"column:created_at;index:idx_orders_status_created"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type orderLineRecord struct {
	ID         int64  `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID    string `gorm:"column:order_id;size:36;index"`
	ItemID     int64  `gorm:"column:item_id"`
	Quantity   int    `gorm:"column:quantity"`
	PriceCents int64  `gorm:"column:price_cents"`
	Position   int    `gorm:"column:position"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

// Idempotency schema mirrors the orders Postgres adapter.
type idempotencyRecord struct {
	Channel   string    `gorm:"primaryKey;column:channel;size:32"`
	Key       string    `gorm:"primaryKey;column:key;size:128"`
	OrderID   string    `gorm:"column:order_id;size:36"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }

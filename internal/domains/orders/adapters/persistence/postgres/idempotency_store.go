package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
	platformpostgres "github.com/dealgrid/ordercore/internal/platform/postgres"
)

// DefaultIdempotencyTTL provides the fallback retention window when none is configured.
const DefaultIdempotencyTTL = 24 * time.Hour

// pgUniqueViolation is the PostgreSQL error code for a unique constraint hit.
const pgUniqueViolation = "23505"

var _ ports.IdempotencyGuard = (*IdempotencyStore)(nil)

// IdempotencyStore persists (channel, key) → order id mappings in PostgreSQL.
// The composite primary key makes a concurrent duplicate record fail inside
// the creating transaction, which is what collapses racing retries to one
// order.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewIdempotencyStore wires a PostgreSQL-backed guard. Caller owns DB lifecycle.
func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{db: db, ttl: ttl}
}

type idempotencyRecord struct {
	Channel   string    `gorm:"primaryKey;column:channel;size:32"`
	Key       string    `gorm:"primaryKey;column:key;size:128"`
	OrderID   string    `gorm:"column:order_id;size:36"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }

// Lookup resolves a live key to its order id; records past retention count as absent.
func (s *IdempotencyStore) Lookup(ctx context.Context, channel, key string) (string, bool, error) {
	if err := s.ensureDB(); err != nil {
		return "", false, err
	}
	db := platformpostgres.HandleFromContext(ctx, s.db)
	var record idempotencyRecord
	err := db.
		Where("channel = ? AND key = ? AND created_at > ?", channel, key, time.Now().Add(-s.ttl)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record.OrderID, true, nil
}

// Record stores the mapping within the ambient transaction. Never mutated
// afterwards; retention cleanup is the only delete path.
func (s *IdempotencyStore) Record(ctx context.Context, channel, key, orderID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	db := platformpostgres.HandleFromContext(ctx, s.db)
	record := idempotencyRecord{Channel: channel, Key: key, OrderID: orderID}
	if err := db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// PurgeExpired removes records past the retention window. Use for housekeeping or cron.
func (s *IdempotencyStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	db := platformpostgres.HandleFromContext(ctx, s.db)
	result := db.
		Where("created_at <= ?", time.Now().Add(-s.ttl)).
		Delete(&idempotencyRecord{})
	return result.RowsAffected, result.Error
}

func (s *IdempotencyStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres idempotency store not configured")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

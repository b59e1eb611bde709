package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	"github.com/dealgrid/ordercore/internal/domains/inventory/ports"
	platformpostgres "github.com/dealgrid/ordercore/internal/platform/postgres"
)

// DefaultLockWait bounds how long a reservation waits on contended rows
// before surfacing a retryable timeout instead of blocking indefinitely.
const DefaultLockWait = 3 * time.Second

// pgLockNotAvailable is the PostgreSQL error code raised when lock_timeout
// expires while waiting on a row lock.
const pgLockNotAvailable = "55P03"

var _ ports.ReservationEngine = (*Engine)(nil)

// Engine is the PostgreSQL reservation engine. All rows of a request are
// locked with SELECT ... FOR UPDATE in ascending item-id order so concurrent
// multi-item requests cannot deadlock, then validated and decremented inside
// one transaction, or not at all.
type Engine struct {
	db       *gorm.DB
	lockWait time.Duration
}

// NewEngine wires a PostgreSQL-backed reservation engine. Caller manages DB lifecycle.
func NewEngine(db *gorm.DB, lockWait time.Duration) *Engine {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Engine{db: db, lockWait: lockWait}
}

// Reserve decrements stock for every line as one atomic unit. On any shortage
// the whole transaction aborts naming the first failing line; nothing is held.
func (e *Engine) Reserve(ctx context.Context, lines []domain.Line) ([]domain.ReservedLine, error) {
	if err := e.ensureDB(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("reservation requires at least one line")
	}
	sorted := sortedLines(lines)
	reserved := make([]domain.ReservedLine, 0, len(sorted))
	err := e.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", e.lockWait.Milliseconds())).Error; err != nil {
			return err
		}
		for _, line := range sorted {
			var record itemRecord
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&record, "id = ?", line.ItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ports.ErrItemNotFound
				}
				return mapLockError(err)
			}
			if record.Available < line.Quantity {
				return domain.InsufficientStockError{
					ItemID:    line.ItemID,
					Requested: line.Quantity,
					Available: record.Available,
				}
			}
			result := tx.Model(&itemRecord{}).Where("id = ?", line.ItemID).
				UpdateColumns(map[string]any{
					"available":  gorm.Expr("available - ?", line.Quantity),
					"updated_at": gorm.Expr("NOW()"),
				})
			if result.Error != nil {
				return result.Error
			}
			reserved = append(reserved, domain.ReservedLine{
				ItemID:     line.ItemID,
				Quantity:   line.Quantity,
				PriceCents: record.PriceCents,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reserved, nil
}

// Release adds quantity back to each row. It never assumes the quantity was
// previously reserved by this caller and skips rows that no longer exist.
func (e *Engine) Release(ctx context.Context, lines []domain.Line) error {
	if err := e.ensureDB(); err != nil {
		return err
	}
	sorted := sortedLines(lines)
	return e.inTx(ctx, func(tx *gorm.DB) error {
		for _, line := range sorted {
			if line.Quantity <= 0 {
				continue
			}
			result := tx.Model(&itemRecord{}).Where("id = ?", line.ItemID).
				UpdateColumns(map[string]any{
					"available":  gorm.Expr("available + ?", line.Quantity),
					"updated_at": gorm.Expr("NOW()"),
				})
			if result.Error != nil {
				return mapLockError(result.Error)
			}
		}
		return nil
	})
}

// inTx joins the ambient transaction when the coordinator opened one, and
// runs standalone callers (merchant restock) in their own.
func (e *Engine) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if tx := platformpostgres.TxFromContext(ctx); tx != nil {
		return fn(tx)
	}
	return e.db.WithContext(ctx).Transaction(fn)
}

func (e *Engine) ensureDB() error {
	if e == nil || e.db == nil {
		return errors.New("postgres reservation engine not configured")
	}
	return nil
}

func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %s", domain.ErrLockTimeout, pgErr.Message)
	}
	return err
}

func sortedLines(lines []domain.Line) []domain.Line {
	out := make([]domain.Line, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

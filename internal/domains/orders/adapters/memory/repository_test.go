package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

func storedOrder(t *testing.T, repo *Repository, id string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(id, domain.TypePickup, 1, 42, []domain.Line{{ItemID: 1, Quantity: 1, PriceCents: 100}}, "", 0)
	require.NoError(t, err)
	saved, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return saved
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository()
	saved := storedOrder(t, repo, "order-1")
	require.False(t, saved.CreatedAt.IsZero())

	got, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, saved.ID, got.ID)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_UpdateStatusIsCompareAndSwap(t *testing.T) {
	repo := NewRepository()
	order := storedOrder(t, repo, "order-1")

	order.Status = domain.StatusPreparing
	updated, err := repo.UpdateStatus(context.Background(), order, domain.StatusPending)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPreparing, updated.Status)

	// A writer that still believes the order is pending loses.
	order.Status = domain.StatusCancelled
	_, err = repo.UpdateStatus(context.Background(), order, domain.StatusPending)
	require.ErrorIs(t, err, ports.ErrStaleOrder)
}

func TestRepository_ReturnsClones(t *testing.T) {
	repo := NewRepository()
	saved := storedOrder(t, repo, "order-1")

	saved.Lines[0].Quantity = 99
	saved.Status = domain.StatusCompleted

	got, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Lines[0].Quantity)
	require.Equal(t, domain.StatusPending, got.Status)
}

func TestRepository_ListExpiredPending(t *testing.T) {
	repo := NewRepository()
	storedOrder(t, repo, "order-1")
	storedOrder(t, repo, "order-2")
	progressed := storedOrder(t, repo, "order-3")
	progressed.Status = domain.StatusPreparing
	_, err := repo.UpdateStatus(context.Background(), progressed, domain.StatusPending)
	require.NoError(t, err)

	cutoff := time.Now().Add(time.Hour)
	ids, err := repo.ListExpiredPending(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	limited, err := repo.ListExpiredPending(context.Background(), cutoff, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := repo.ListExpiredPending(context.Background(), time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestIdempotencyGuard_RecordAndLookup(t *testing.T) {
	guard := NewIdempotencyGuard(time.Hour)

	require.NoError(t, guard.Record(context.Background(), "bot", "key-1", "order-1"))

	orderID, ok, err := guard.Lookup(context.Background(), "bot", "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "order-1", orderID)

	// Same key on another channel is unrelated.
	_, ok, err = guard.Lookup(context.Background(), "web", "key-1")
	require.NoError(t, err)
	require.False(t, ok)

	err = guard.Record(context.Background(), "bot", "key-1", "order-2")
	require.ErrorIs(t, err, ports.ErrDuplicateKey)
}

func TestIdempotencyGuard_ExpiryAndPurge(t *testing.T) {
	guard := NewIdempotencyGuard(time.Nanosecond)

	require.NoError(t, guard.Record(context.Background(), "bot", "key-1", "order-1"))
	time.Sleep(time.Millisecond)

	_, ok, err := guard.Lookup(context.Background(), "bot", "key-1")
	require.NoError(t, err)
	require.False(t, ok, "expired keys count as absent")

	// An expired slot may be re-recorded.
	require.NoError(t, guard.Record(context.Background(), "bot", "key-1", "order-2"))

	time.Sleep(time.Millisecond)
	purged, err := guard.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

func newExpiryFixture(t *testing.T, batchSize int) (*fixture, *ExpiryWorker) {
	t.Helper()
	f := newFixture(t)
	worker := NewExpiryWorker(f.svc, f.repo, f.guard, 30*time.Minute, time.Minute, batchSize, nil)
	// Pretend the sweep runs two hours from now so everything created in the
	// test is past its hold.
	worker.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	return f, worker
}

func TestSweep_CancelsExpiredPendingOrders(t *testing.T) {
	f, worker := newExpiryFixture(t, 100)
	itemID := f.addItem(t, 900, 10)
	order, err := f.svc.CreateOrder(context.Background(), pickupInput("key-1", types.LineInput{ItemID: itemID, Quantity: 4}))
	require.NoError(t, err)
	require.Equal(t, 6, f.available(t, itemID))

	cancelled, err := worker.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cancelled)

	got, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, got.Status)
	require.Equal(t, "expired", got.CancelReason)
	require.Equal(t, 10, f.available(t, itemID), "expiry hands the reservation back")

	events := f.notifier.recorded()
	require.Len(t, events, 2, "created plus exactly one cancellation event")
	require.Equal(t, domain.StatusCancelled, events[1].NewStatus)
	require.Equal(t, "expired", events[1].Reason)
}

func TestSweep_LeavesProgressedOrdersAlone(t *testing.T) {
	f, worker := newExpiryFixture(t, 100)
	itemID := f.addItem(t, 900, 10)
	order, err := f.svc.CreateOrder(context.Background(), pickupInput("key-1", types.LineInput{ItemID: itemID, Quantity: 4}))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), types.StatusUpdateInput{
		OrderID: order.ID, Target: domain.StatusPreparing, Actor: domain.ActorMerchant,
	})
	require.NoError(t, err)

	cancelled, err := worker.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, cancelled)

	got, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPreparing, got.Status)
	require.Equal(t, 6, f.available(t, itemID), "in-flight orders keep their hold")
}

func TestSweep_DrainsBacklogInBatches(t *testing.T) {
	f, worker := newExpiryFixture(t, 2)
	itemID := f.addItem(t, 900, 100)
	const backlog = 5
	for i := 0; i < backlog; i++ {
		_, err := f.svc.CreateOrder(context.Background(), pickupInput(fmt.Sprintf("key-%d", i), types.LineInput{ItemID: itemID, Quantity: 1}))
		require.NoError(t, err)
	}
	require.Equal(t, 95, f.available(t, itemID))

	cancelled, err := worker.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, backlog, cancelled)
	require.Equal(t, 100, f.available(t, itemID))
}

// failingService rejects every cancellation with a transient error.
type failingService struct {
	ports.Service
}

func (failingService) UpdateStatus(context.Context, types.StatusUpdateInput) (*domain.Order, error) {
	return nil, errors.New("broker hiccup")
}

func TestSweep_BailsOutWhenNothingProgresses(t *testing.T) {
	f, worker := newExpiryFixture(t, 100)
	itemID := f.addItem(t, 900, 10)
	_, err := f.svc.CreateOrder(context.Background(), pickupInput("key-1", types.LineInput{ItemID: itemID, Quantity: 1}))
	require.NoError(t, err)
	worker.svc = failingService{Service: f.svc}

	done := make(chan struct{})
	var cancelled int
	var sweepErr error
	go func() {
		cancelled, sweepErr = worker.Sweep(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not terminate on a stuck batch")
	}
	require.NoError(t, sweepErr)
	require.Equal(t, 0, cancelled)
}

func TestSweep_StopsOnContextCancel(t *testing.T) {
	f, worker := newExpiryFixture(t, 1)
	itemID := f.addItem(t, 900, 10)
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateOrder(context.Background(), pickupInput(fmt.Sprintf("key-%d", i), types.LineInput{ItemID: itemID, Quantity: 1}))
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := worker.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_StopsWhenContextEnds(t *testing.T) {
	_, worker := newExpiryFixture(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := worker.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

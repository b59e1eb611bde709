package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pickupOrder(t *testing.T, status Status) *Order {
	t.Helper()
	order, err := NewOrder("order-1", TypePickup, 1, 1, []Line{{ItemID: 1, Quantity: 2, PriceCents: 500}}, "", 0)
	require.NoError(t, err)
	order.Status = status
	return order
}

func deliveryOrder(t *testing.T, status Status, payment PaymentStatus) *Order {
	t.Helper()
	order, err := NewOrder("order-2", TypeDelivery, 1, 1, []Line{{ItemID: 1, Quantity: 1, PriceCents: 500}}, "12 Main St", 300)
	require.NoError(t, err)
	order.Status = status
	order.PaymentStatus = payment
	return order
}

func TestTransitionTo_PickupHappyPath(t *testing.T) {
	order := pickupOrder(t, StatusPending)

	for _, target := range []Status{StatusPreparing, StatusReady, StatusCompleted} {
		changed, err := order.TransitionTo(target, ActorMerchant, "")
		require.NoError(t, err, "transition to %s", target)
		require.True(t, changed)
		require.Equal(t, target, order.Status)
	}
}

func TestTransitionTo_DeliveryHappyPath(t *testing.T) {
	order := deliveryOrder(t, StatusPending, PaymentConfirmed)

	steps := []struct {
		target Status
		actor  ActorRole
	}{
		{StatusPreparing, ActorMerchant},
		{StatusReady, ActorMerchant},
		{StatusDelivering, ActorCourier},
		{StatusCompleted, ActorCourier},
	}
	for _, step := range steps {
		changed, err := order.TransitionTo(step.target, step.actor, "")
		require.NoError(t, err, "transition to %s", step.target)
		require.True(t, changed)
	}
	require.Equal(t, StatusCompleted, order.Status)
}

func TestTransitionTo_PickupNeverDelivers(t *testing.T) {
	order := pickupOrder(t, StatusReady)

	_, err := order.TransitionTo(StatusDelivering, ActorCourier, "")
	var invalid InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusReady, order.Status)
}

func TestTransitionTo_DeliveryCannotCompleteFromReady(t *testing.T) {
	order := deliveryOrder(t, StatusReady, PaymentConfirmed)

	_, err := order.TransitionTo(StatusCompleted, ActorCourier, "")
	var invalid InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusReady, order.Status)
}

func TestTransitionTo_PreparingRequiresSettledPayment(t *testing.T) {
	order := deliveryOrder(t, StatusPending, PaymentAwaiting)

	_, err := order.TransitionTo(StatusPreparing, ActorMerchant, "")
	var invalid InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	order.PaymentStatus = PaymentConfirmed
	changed, err := order.TransitionTo(StatusPreparing, ActorMerchant, "")
	require.NoError(t, err)
	require.True(t, changed)
}

func TestTransitionTo_TerminalStatesHaveNoExits(t *testing.T) {
	targets := []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivering, StatusRejected, StatusCancelled}
	for _, terminal := range []Status{StatusCompleted, StatusRejected, StatusCancelled} {
		for _, target := range targets {
			order := pickupOrder(t, terminal)
			_, err := order.TransitionTo(target, ActorMerchant, "")
			var invalid InvalidTransitionError
			require.ErrorAs(t, err, &invalid, "%s -> %s should be rejected", terminal, target)
			require.Equal(t, terminal, order.Status)
		}
	}
}

// TestTransitionTo_FullMatrix walks every (status, target) pair for both order
// types with payment settled and a permitted actor, so only the edges listed
// here may ever apply; everything else must fail closed.
func TestTransitionTo_FullMatrix(t *testing.T) {
	statuses := []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivering, StatusCompleted, StatusRejected, StatusCancelled}
	actors := map[Status]ActorRole{
		StatusPending:    ActorMerchant,
		StatusPreparing:  ActorMerchant,
		StatusReady:      ActorMerchant,
		StatusDelivering: ActorCourier,
		StatusCompleted:  ActorCustomer,
		StatusRejected:   ActorMerchant,
		StatusCancelled:  ActorCustomer,
	}
	type edge struct{ from, to Status }
	shared := []edge{
		{StatusPending, StatusPreparing},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusPreparing, StatusReady},
		{StatusPreparing, StatusRejected},
		{StatusReady, StatusRejected},
	}
	valid := map[Type]map[edge]bool{
		TypePickup:   {{StatusReady, StatusCompleted}: true},
		TypeDelivery: {{StatusReady, StatusDelivering}: true, {StatusDelivering, StatusCompleted}: true},
	}
	for _, table := range valid {
		for _, e := range shared {
			table[e] = true
		}
	}

	for orderType, table := range valid {
		for _, from := range statuses {
			for _, target := range statuses {
				var order *Order
				if orderType == TypePickup {
					order = pickupOrder(t, from)
				} else {
					order = deliveryOrder(t, from, PaymentConfirmed)
				}
				changed, err := order.TransitionTo(target, actors[target], "matrix")
				switch {
				case from == StatusCompleted && target == StatusCompleted:
					require.NoError(t, err)
					require.False(t, changed)
				case table[edge{from, target}]:
					require.NoError(t, err, "%s %s -> %s should apply", orderType, from, target)
					require.True(t, changed)
					require.Equal(t, target, order.Status)
				default:
					var invalid InvalidTransitionError
					require.ErrorAs(t, err, &invalid, "%s %s -> %s should be rejected", orderType, from, target)
					require.Equal(t, from, order.Status, "%s %s -> %s must not move the order", orderType, from, target)
				}
			}
		}
	}
}

func TestTransitionTo_DuplicateCompletionIsIdempotent(t *testing.T) {
	order := pickupOrder(t, StatusCompleted)

	changed, err := order.TransitionTo(StatusCompleted, ActorCustomer, "")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, StatusCompleted, order.Status)
}

func TestTransitionTo_ActorRestrictions(t *testing.T) {
	cases := []struct {
		name   string
		status Status
		target Status
		actor  ActorRole
		ok     bool
	}{
		{"customer cannot start preparing", StatusPending, StatusPreparing, ActorCustomer, false},
		{"customer cannot reject", StatusPending, StatusRejected, ActorCustomer, false},
		{"merchant cannot cancel", StatusPending, StatusCancelled, ActorMerchant, false},
		{"customer cancels pending", StatusPending, StatusCancelled, ActorCustomer, true},
		{"system cancels pending", StatusPending, StatusCancelled, ActorSystem, true},
		{"merchant rejects preparing", StatusPreparing, StatusRejected, ActorMerchant, true},
		{"system cannot reject", StatusPreparing, StatusRejected, ActorSystem, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := pickupOrder(t, tc.status)
			changed, err := order.TransitionTo(tc.target, tc.actor, "because")
			if tc.ok {
				require.NoError(t, err)
				require.True(t, changed)
			} else {
				var invalid InvalidTransitionError
				require.ErrorAs(t, err, &invalid)
			}
		})
	}
}

func TestTransitionTo_CancelledOnlyFromPending(t *testing.T) {
	for _, status := range []Status{StatusPreparing, StatusReady, StatusDelivering} {
		order := deliveryOrder(t, status, PaymentConfirmed)
		_, err := order.TransitionTo(StatusCancelled, ActorCustomer, "changed my mind")
		var invalid InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "cancel from %s should be rejected", status)
	}
}

func TestTransitionTo_RecordsCancelReason(t *testing.T) {
	order := pickupOrder(t, StatusPreparing)

	changed, err := order.TransitionTo(StatusRejected, ActorMerchant, "out of ingredients")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "out of ingredients", order.CancelReason)
}

func TestTransitionTo_UnknownTarget(t *testing.T) {
	order := pickupOrder(t, StatusPending)

	_, err := order.TransitionTo(Status("shipped"), ActorMerchant, "")
	var invalid InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestReleasesInventory(t *testing.T) {
	require.True(t, ReleasesInventory(StatusRejected))
	require.True(t, ReleasesInventory(StatusCancelled))
	for _, status := range []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivering, StatusCompleted} {
		require.False(t, ReleasesInventory(status), "%s must not release stock", status)
	}
}

func TestNotifiesOutward_ReadyIsSilent(t *testing.T) {
	require.False(t, NotifiesOutward(StatusReady))
	for _, status := range []Status{StatusPending, StatusPreparing, StatusDelivering, StatusCompleted, StatusRejected, StatusCancelled} {
		require.True(t, NotifiesOutward(status), "%s should notify", status)
	}
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOrder_Pickup(t *testing.T) {
	order, err := NewOrder("id-1", TypePickup, 7, 9, []Line{
		{ItemID: 1, Quantity: 2, PriceCents: 1500},
		{ItemID: 2, Quantity: 1, PriceCents: 700},
	}, "", 0)

	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, PaymentNotRequired, order.PaymentStatus)
	require.Equal(t, int64(3700), order.TotalCents)
}

func TestNewOrder_DeliveryAddsFeeAndAwaitsPayment(t *testing.T) {
	order, err := NewOrder("id-2", TypeDelivery, 7, 9, []Line{
		{ItemID: 1, Quantity: 1, PriceCents: 1000},
	}, "12 Main St", 250)

	require.NoError(t, err)
	require.Equal(t, PaymentAwaiting, order.PaymentStatus)
	require.Equal(t, int64(1250), order.TotalCents)
}

func TestNewOrder_Validation(t *testing.T) {
	line := Line{ItemID: 1, Quantity: 1, PriceCents: 100}
	cases := []struct {
		name    string
		typ     Type
		storeID int64
		custID  int64
		lines   []Line
		address string
		fee     int64
		wantErr error
	}{
		{"unknown type", Type("shipping"), 1, 1, []Line{line}, "", 0, ErrInvalidType},
		{"no lines", TypePickup, 1, 1, nil, "", 0, ErrNoLines},
		{"zero quantity", TypePickup, 1, 1, []Line{{ItemID: 1, Quantity: 0, PriceCents: 100}}, "", 0, ErrInvalidLine},
		{"zero price", TypePickup, 1, 1, []Line{{ItemID: 1, Quantity: 1}}, "", 0, ErrInvalidLine},
		{"bad store", TypePickup, 0, 1, []Line{line}, "", 0, ErrInvalidStoreID},
		{"bad customer", TypePickup, 1, 0, []Line{line}, "", 0, ErrInvalidCustomerID},
		{"delivery without address", TypeDelivery, 1, 1, []Line{line}, "", 0, ErrMissingDeliveryInfo},
		{"pickup with address", TypePickup, 1, 1, []Line{line}, "12 Main St", 0, ErrUnexpectedDelivery},
		{"pickup with fee", TypePickup, 1, 1, []Line{line}, "", 100, ErrUnexpectedDelivery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder("id", tc.typ, tc.storeID, tc.custID, tc.lines, tc.address, tc.fee)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSetPaymentStatus_DeliveryCannotWaive(t *testing.T) {
	order := deliveryOrder(t, StatusPending, PaymentAwaiting)

	_, err := order.SetPaymentStatus(PaymentNotRequired, "")
	require.ErrorIs(t, err, ErrPaymentRequired)
}

func TestSetPaymentStatus_TerminalIsNoOp(t *testing.T) {
	order := deliveryOrder(t, StatusCancelled, PaymentAwaiting)

	changed, err := order.SetPaymentStatus(PaymentConfirmed, "")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, PaymentAwaiting, order.PaymentStatus)
}

func TestSetPaymentStatus_RecordsProof(t *testing.T) {
	order := deliveryOrder(t, StatusPending, PaymentAwaitingProof)

	changed, err := order.SetPaymentStatus(PaymentProofSubmitted, "receipt-42")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, PaymentProofSubmitted, order.PaymentStatus)
	require.Equal(t, "receipt-42", order.PaymentProofRef)

	// Same status and proof again is a no-op.
	changed, err = order.SetPaymentStatus(PaymentProofSubmitted, "receipt-42")
	require.NoError(t, err)
	require.False(t, changed)
}

func TestSetPaymentStatus_RejectsUnknownStatus(t *testing.T) {
	order := pickupOrder(t, StatusPending)

	_, err := order.SetPaymentStatus(PaymentStatus("paid"), "")
	require.ErrorIs(t, err, ErrInvalidPaymentStatus)
}

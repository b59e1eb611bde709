package types

import "github.com/dealgrid/ordercore/internal/domains/orders/domain"

// LineInput is one requested (item, quantity) pair; unit prices are read from
// the locked ledger rows, never trusted from the client.
type LineInput struct {
	ItemID   int64
	Quantity int
}

// DeliveryInput carries the delivery-only fields of a create request.
type DeliveryInput struct {
	Address  string
	FeeCents int64
}

// CreateOrderInput is the channel-agnostic create request.
type CreateOrderInput struct {
	Channel        string
	IdempotencyKey string
	Type           domain.Type
	StoreID        int64
	CustomerID     int64
	Lines          []LineInput
	Delivery       *DeliveryInput
}

// StatusUpdateInput asks for one edge of the status graph.
type StatusUpdateInput struct {
	OrderID string
	Target  domain.Status
	Actor   domain.ActorRole
	Reason  string
}

// PaymentUpdateInput is the payment collaborator's status callback.
type PaymentUpdateInput struct {
	OrderID  string
	Status   domain.PaymentStatus
	ProofRef string
}

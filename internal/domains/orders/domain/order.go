package domain

import (
	"errors"
	"time"
)

// Type distinguishes the two fulfilment flows.
type Type string

const (
	TypePickup   Type = "pickup"
	TypeDelivery Type = "delivery"
)

// Status enumerates order progression. Delivering is valid only for delivery
// orders; completed, rejected, and cancelled are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPreparing  Status = "preparing"
	StatusReady      Status = "ready"
	StatusDelivering Status = "delivering"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks the payment collaborator's view of the order.
type PaymentStatus string

const (
	PaymentNotRequired    PaymentStatus = "not_required"
	PaymentAwaiting       PaymentStatus = "awaiting_payment"
	PaymentAwaitingProof  PaymentStatus = "awaiting_proof"
	PaymentProofSubmitted PaymentStatus = "proof_submitted"
	PaymentConfirmed      PaymentStatus = "confirmed"
	PaymentRejected       PaymentStatus = "rejected"
)

// ActorRole identifies who asked for a transition.
type ActorRole string

const (
	ActorCustomer ActorRole = "customer"
	ActorMerchant ActorRole = "merchant"
	ActorCourier  ActorRole = "courier"
	ActorSystem   ActorRole = "system"
)

var (
	ErrInvalidType          = errors.New("order type is invalid")
	ErrNoLines              = errors.New("order requires at least one line")
	ErrInvalidLine          = errors.New("order line is invalid")
	ErrInvalidStoreID       = errors.New("store id must be greater than zero")
	ErrInvalidCustomerID    = errors.New("customer id must be greater than zero")
	ErrMissingDeliveryInfo  = errors.New("delivery orders require a delivery address")
	ErrUnexpectedDelivery   = errors.New("pickup orders cannot carry delivery details")
	ErrInvalidPaymentStatus = errors.New("payment status is invalid")
	// Cash-on-delivery is disallowed by policy.
	ErrPaymentRequired = errors.New("delivery orders cannot waive payment")
)

// Line is one immutable item line of an order. Quantity and unit price are
// fixed at reservation time; cancellation releases stock but never edits lines.
type Line struct {
	ItemID     int64
	Quantity   int
	PriceCents int64
}

// Order models one purchase transaction, unified across the single-item and
// multi-item channels: a single-item order is a lines sequence of length one.
type Order struct {
	ID               string
	Type             Type
	Status           Status
	PaymentStatus    PaymentStatus
	Lines            []Line
	StoreID          int64
	CustomerID       int64
	TotalCents       int64
	DeliveryFeeCents int64
	DeliveryAddress  string
	IdempotencyKey   string
	PaymentProofRef  string
	CancelReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder validates and constructs a pending order. The payment status seed
// follows the fulfilment type: pickup is payable on collection, delivery must
// go through an online or proof-based method.
func NewOrder(id string, typ Type, storeID, customerID int64, lines []Line, deliveryAddress string, deliveryFeeCents int64) (*Order, error) {
	order := &Order{
		ID:               id,
		Type:             typ,
		Status:           StatusPending,
		Lines:            lines,
		StoreID:          storeID,
		CustomerID:       customerID,
		DeliveryFeeCents: deliveryFeeCents,
		DeliveryAddress:  deliveryAddress,
	}
	switch typ {
	case TypePickup:
		order.PaymentStatus = PaymentNotRequired
	case TypeDelivery:
		order.PaymentStatus = PaymentAwaiting
	default:
		return nil, ErrInvalidType
	}
	for _, line := range lines {
		order.TotalCents += line.PriceCents * int64(line.Quantity)
	}
	order.TotalCents += deliveryFeeCents
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if o.Type != TypePickup && o.Type != TypeDelivery {
		return ErrInvalidType
	}
	if len(o.Lines) == 0 {
		return ErrNoLines
	}
	for _, line := range o.Lines {
		if line.ItemID <= 0 || line.Quantity <= 0 || line.PriceCents <= 0 {
			return ErrInvalidLine
		}
	}
	if o.StoreID <= 0 {
		return ErrInvalidStoreID
	}
	if o.CustomerID <= 0 {
		return ErrInvalidCustomerID
	}
	if o.Type == TypeDelivery {
		if o.DeliveryAddress == "" {
			return ErrMissingDeliveryInfo
		}
		if o.PaymentStatus == PaymentNotRequired {
			return ErrPaymentRequired
		}
	} else {
		if o.DeliveryAddress != "" || o.DeliveryFeeCents != 0 {
			return ErrUnexpectedDelivery
		}
	}
	if !isValidPaymentStatus(o.PaymentStatus) {
		return ErrInvalidPaymentStatus
	}
	return nil
}

// Terminal reports whether the order reached a state with no outgoing edges.
func (o *Order) Terminal() bool {
	switch o.Status {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// SetPaymentStatus applies a payment collaborator update. Updates against a
// terminal order are rejected as a no-op; the returned bool reports whether
// anything changed.
func (o *Order) SetPaymentStatus(status PaymentStatus, proofRef string) (bool, error) {
	if !isValidPaymentStatus(status) {
		return false, ErrInvalidPaymentStatus
	}
	if o.Terminal() {
		return false, nil
	}
	if o.Type == TypeDelivery && status == PaymentNotRequired {
		return false, ErrPaymentRequired
	}
	if o.PaymentStatus == status && o.PaymentProofRef == proofRef {
		return false, nil
	}
	o.PaymentStatus = status
	if proofRef != "" {
		o.PaymentProofRef = proofRef
	}
	return true, nil
}

func isValidPaymentStatus(status PaymentStatus) bool {
	switch status {
	case PaymentNotRequired, PaymentAwaiting, PaymentAwaitingProof, PaymentProofSubmitted, PaymentConfirmed, PaymentRejected:
		return true
	default:
		return false
	}
}

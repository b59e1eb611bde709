package ports

import (
	"context"
	"time"

	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
)

// TransitionEvent describes one committed status transition. The consumer
// owns formatting, localization, and delivery-channel selection, and must be
// idempotent against duplicate delivery.
type TransitionEvent struct {
	OrderID        string        `json:"order_id"`
	OrderType      domain.Type   `json:"order_type"`
	PreviousStatus domain.Status `json:"previous_status"`
	NewStatus      domain.Status `json:"new_status"`
	CustomerID     int64         `json:"customer_id"`
	StoreID        int64         `json:"store_id"`
	Reason         string        `json:"reason,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// Notifier is the outbound edge invoked exactly once per successful
// transition, after the transaction commits.
type Notifier interface {
	Notify(ctx context.Context, event TransitionEvent) error
}

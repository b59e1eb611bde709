package notify

import (
	"context"
	"log/slog"

	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

var _ ports.Notifier = (*SlogNotifier)(nil)

// SlogNotifier writes transition events to the structured log. Used when no
// broker is configured so transitions stay observable in development.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier wires the log-backed dispatcher.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Notify(ctx context.Context, event ports.TransitionEvent) error {
	n.logger.LogAttrs(ctx, slog.LevelInfo, "order transition",
		slog.String("order_id", event.OrderID),
		slog.String("order_type", string(event.OrderType)),
		slog.String("previous_status", string(event.PreviousStatus)),
		slog.String("new_status", string(event.NewStatus)),
		slog.Int64("customer_id", event.CustomerID),
		slog.Int64("store_id", event.StoreID),
	)
	return nil
}

// Close is a no-op; the log-backed dispatcher holds no connections.
func (n *SlogNotifier) Close() error { return nil }

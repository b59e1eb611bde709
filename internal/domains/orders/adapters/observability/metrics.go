package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	invdomain "github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	ordersdomain "github.com/dealgrid/ordercore/internal/domains/orders/domain"
)

type serviceMetrics struct {
	ordersCreated    metric.Int64Counter
	orderTransitions metric.Int64Counter
	stockConflicts   metric.Int64Counter
	lockTimeouts     metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("orders.service.created", metric.WithDescription("Number of orders created"))
	orderTransitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Number of applied status transitions"))
	stockConflicts, _ := m.Int64Counter("orders.service.stock_conflicts", metric.WithDescription("Number of create requests rejected for insufficient stock"))
	lockTimeouts, _ := m.Int64Counter("orders.service.lock_timeouts", metric.WithDescription("Number of operations that exhausted lock-wait retries"))
	return serviceMetrics{
		ordersCreated:    ordersCreated,
		orderTransitions: orderTransitions,
		stockConflicts:   stockConflicts,
		lockTimeouts:     lockTimeouts,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, orderType ordersdomain.Type) {
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("order.type", string(orderType))))
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status ordersdomain.Status) {
	if m.orderTransitions != nil {
		m.orderTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

// recordCreateFailure distinguishes stock shortage from lock contention so
// channels can be tuned on the right signal.
func (m serviceMetrics) recordCreateFailure(ctx context.Context, err error) {
	var insufficient invdomain.InsufficientStockError
	if errors.As(err, &insufficient) && m.stockConflicts != nil {
		m.stockConflicts.Add(ctx, 1, metric.WithAttributes(attribute.Int64("item.id", insufficient.ItemID)))
		return
	}
	if errors.Is(err, invdomain.ErrLockTimeout) && m.lockTimeouts != nil {
		m.lockTimeouts.Add(ctx, 1)
	}
}

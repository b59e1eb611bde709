package observability

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	invdomain "github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	ordersdomain "github.com/dealgrid/ordercore/internal/domains/orders/domain"
	ordersports "github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

const tracerName = "github.com/dealgrid/ordercore/internal/domains/orders/adapters/observability/service"

// Service decorates the order coordinator with tracing, logging, and metrics.
type Service struct {
	inner   ordersports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core coordinator service.
func New(inner ordersports.Service, opts ...Option) ordersports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderCoordinator.CreateOrder",
		trace.WithAttributes(
			attribute.String("order.channel", input.Channel),
			attribute.String("order.type", string(input.Type)),
			attribute.Int("order.lines", len(input.Lines)),
		))
	defer span.End()

	s.logInfo(ctx, "creating order",
		slog.String("channel", input.Channel),
		slog.Int64("store_id", input.StoreID),
		slog.Int("lines", len(input.Lines)))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		s.metrics.recordCreateFailure(ctx, err)
		return nil, s.handleError(ctx, span, err, "failed to create order", slog.String("channel", input.Channel))
	}
	span.SetAttributes(attribute.String("order.id", result.ID))
	s.metrics.recordCreated(ctx, result.Type)
	s.logInfo(ctx, "order created",
		slog.String("order_id", result.ID),
		slog.String("status", string(result.Status)),
		slog.Int64("total_cents", result.TotalCents))
	return result, nil
}

func (s *Service) UpdateStatus(ctx context.Context, input types.StatusUpdateInput) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderCoordinator.UpdateStatus",
		trace.WithAttributes(
			attribute.String("order.id", input.OrderID),
			attribute.String("order.target_status", string(input.Target)),
			attribute.String("order.actor", string(input.Actor)),
		))
	defer span.End()

	result, err := s.inner.UpdateStatus(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update order status",
			slog.String("order_id", input.OrderID),
			slog.String("target_status", string(input.Target)))
	}
	s.metrics.recordTransition(ctx, result.Status)
	s.logInfo(ctx, "order status updated",
		slog.String("order_id", result.ID),
		slog.String("status", string(result.Status)),
		slog.String("actor", string(input.Actor)))
	return result, nil
}

func (s *Service) ApplyPaymentStatus(ctx context.Context, input types.PaymentUpdateInput) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderCoordinator.ApplyPaymentStatus",
		trace.WithAttributes(
			attribute.String("order.id", input.OrderID),
			attribute.String("order.payment_status", string(input.Status)),
		))
	defer span.End()

	result, err := s.inner.ApplyPaymentStatus(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to apply payment status", slog.String("order_id", input.OrderID))
	}
	s.logInfo(ctx, "payment status applied",
		slog.String("order_id", result.ID),
		slog.String("payment_status", string(result.PaymentStatus)))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderCoordinator.GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order_id", id))
	}
	return result, nil
}

func (s *Service) CustomerOrders(ctx context.Context, customerID int64) ([]*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderCoordinator.CustomerOrders", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()

	result, err := s.inner.CustomerOrders(ctx, customerID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list customer orders", slog.Int64("customer_id", customerID))
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level := slog.LevelError
		// Stock shortages and caller-side transition mistakes are expected
		// traffic, not operational failures.
		var insufficient invdomain.InsufficientStockError
		var invalid ordersdomain.InvalidTransitionError
		if errors.As(err, &insufficient) || errors.As(err, &invalid) {
			level = slog.LevelWarn
		}
		s.logger.LogAttrs(ctx, level, msg, attrs...)
	}
	return err
}

var _ ordersports.Service = (*Service)(nil)

package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dealgrid/ordercore/internal/domains/orders/ports"
)

var _ ports.Notifier = (*KafkaNotifier)(nil)

// KafkaNotifier publishes transition events to a Kafka topic. Messages are
// keyed by order id so every consumer sees one order's transitions in order.
// Formatting and delivery-channel selection belong to the consumers.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaNotifier wires a synchronous producer with full-acknowledgement writes.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: logger,
	}
}

// Notify publishes one event. Failures are logged and returned; the caller's
// transition is already committed and is never rolled back over delivery.
func (n *KafkaNotifier) Notify(ctx context.Context, event ports.TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Time:  event.OccurredAt,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.logger.Error("failed to publish transition event",
			slog.String("order_id", event.OrderID),
			slog.String("new_status", string(event.NewStatus)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

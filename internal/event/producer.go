package event

import (
	"context"

	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/pkg/kafka"
	"github.com/etianguis/checkout/pkg/logger"
)

// Topics and event types for the order lifecycle.
const (
	TopicOrderCompleted     = "etianguis.order.completed"
	TopicOrderPendingManual = "etianguis.order.pending_manual"

	TypeOrderCompleted     = "order.completed"
	TypeOrderPendingManual = "order.pending_manual"

	source = "checkout-service"
)

// Publisher is the slice of the Kafka producer this package needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// OrderProducer publishes order lifecycle events. Confirmed orders go to the
// completed topic; synthetic orders go to the pending-manual topic where the
// retry worker and back office pick them up.
type OrderProducer struct {
	producer Publisher
}

func NewOrderProducer(producer Publisher) *OrderProducer {
	return &OrderProducer{producer: producer}
}

// OrderCompleted announces a backend-confirmed order.
func (p *OrderProducer) OrderCompleted(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderCompleted, TypeOrderCompleted, order)
}

// OrderPendingManual announces a synthetic order awaiting reconciliation.
func (p *OrderProducer) OrderPendingManual(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderPendingManual, TypeOrderPendingManual, order)
}

func (p *OrderProducer) publish(ctx context.Context, topic, eventType string, order *domain.Order) error {
	evt, err := kafka.NewEvent(eventType, order.ID, source, order)
	if err != nil {
		return err
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	evt.WithMetadata("cart_id", order.CartID)

	return p.producer.Publish(ctx, topic, evt)
}

package service

import (
	"context"
	"log/slog"

	"github.com/etianguis/checkout/internal/commerce"
	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/pkg/logger"
)

// CartCompleter is the slice of the commerce client the finalizer needs.
type CartCompleter interface {
	CompleteCart(ctx context.Context, cartID string) (*domain.Order, error)
}

// Completion is the outcome of order finalization. Exactly one of the two
// modes applies: the backend confirmed the order, or a synthetic order was
// fabricated locally.
type Completion struct {
	Order  *domain.Order
	ViaAPI bool
}

// FallbackData is the locally held cart state used to fabricate a synthetic
// order when the backend cannot confirm completion.
type FallbackData struct {
	CartID          string
	Email           string
	ShippingAddress *domain.Address
	Items           []domain.LineItem
}

// OrderFinalizer turns a prepared cart into an order, no matter what. When
// the backend fails in any recoverable way the finalizer degrades to a
// synthetic pending order instead of surfacing the failure.
type OrderFinalizer struct {
	commerce CartCompleter
	logger   *slog.Logger
}

func NewOrderFinalizer(commerce CartCompleter, log *slog.Logger) *OrderFinalizer {
	return &OrderFinalizer{commerce: commerce, logger: log}
}

// Finalize attempts backend completion and falls back to a synthetic order on
// failure. It never returns an error; every call yields exactly one order.
func (f *OrderFinalizer) Finalize(ctx context.Context, data FallbackData) Completion {
	log := logger.WithContext(ctx, f.logger)

	order, err := f.commerce.CompleteCart(ctx, data.CartID)
	if err == nil {
		log.Info("cart completed by backend", "cart_id", data.CartID, "order_id", order.ID)
		return Completion{Order: order, ViaAPI: true}
	}

	log.Warn("backend completion failed, creating manual order",
		"cart_id", data.CartID,
		"failure_class", failureClass(err),
		"error", err,
	)

	manual := domain.NewManualOrder(data.CartID, data.Email, data.ShippingAddress, data.Items)
	log.Info("created manual order", "cart_id", data.CartID, "order_id", manual.ID)
	return Completion{Order: manual, ViaAPI: false}
}

func failureClass(err error) string {
	switch {
	case commerce.IsTransport(err):
		return "transport"
	case commerce.IsMalformed(err):
		return "malformed_response"
	default:
		if status, ok := commerce.IsRejection(err); ok {
			if status >= 500 {
				return "backend_error"
			}
			return "backend_rejection"
		}
		return "unknown"
	}
}

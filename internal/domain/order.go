package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// Payment and fulfillment status constants.
const (
	PaymentStatusAwaiting = "awaiting"
	PaymentStatusCaptured = "captured"

	FulfillmentStatusNotFulfilled = "not_fulfilled"
)

// ManualOrderPrefix marks order identifiers fabricated locally when the
// commerce backend failed to confirm cart completion. Orders carrying this
// prefix are non-authoritative and must be reconciled against the backend.
const ManualOrderPrefix = "manual_"

// MetadataCreatedManually is the metadata key flagging a synthetic order.
const MetadataCreatedManually = "created_manually"

// Order is the outcome of a checkout attempt. It is either a real backend
// order or a synthetic record fabricated from locally available cart data.
// Every checkout attempt yields exactly one Order.
type Order struct {
	ID                string            `json:"id"`
	CartID            string            `json:"cart_id"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	Email             string            `json:"email"`
	ShippingAddress   *Address          `json:"shipping_address,omitempty"`
	Items             []LineItem        `json:"items"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// NewManualOrder fabricates a synthetic pending order from the data the
// pipeline already holds. The generated identifier carries ManualOrderPrefix
// so downstream consumers can tell it apart from backend-issued orders.
func NewManualOrder(cartID, email string, address *Address, items []LineItem) *Order {
	return &Order{
		ID:                ManualOrderPrefix + uuid.New().String(),
		CartID:            cartID,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusAwaiting,
		FulfillmentStatus: FulfillmentStatusNotFulfilled,
		Email:             email,
		ShippingAddress:   address,
		Items:             items,
		Metadata: map[string]string{
			MetadataCreatedManually: "true",
		},
		CreatedAt: time.Now().UTC(),
	}
}

// IsSynthetic reports whether the order was fabricated locally rather than
// confirmed by the commerce backend.
func (o *Order) IsSynthetic() bool {
	return strings.HasPrefix(o.ID, ManualOrderPrefix)
}

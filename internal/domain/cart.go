package domain

// Cart represents the mutable pre-order state held by the commerce backend.
// This service never owns cart state; the struct mirrors what the backend
// returns so the pipeline can thread identifiers and items through its steps.
type Cart struct {
	ID              string            `json:"id"`
	Email           string            `json:"email,omitempty"`
	ShippingAddress *Address          `json:"shipping_address,omitempty"`
	Items           []LineItem        `json:"items"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// LineItem is a purchasable variant plus quantity within a cart or order.
// Immutable once added for the purposes of the checkout pipeline.
type LineItem struct {
	Title     string `json:"title"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Address represents a shipping address.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
}

// Subtotal computes price * quantity summed over the items.
func (c *Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}
	return subtotal
}

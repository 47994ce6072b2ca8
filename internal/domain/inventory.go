package domain

// ItemAdjustment requests a stock decrement for a single variant.
type ItemAdjustment struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// AdjustmentResult reports the outcome of one variant's stock adjustment.
// Consumed for logging and diagnostics only; never used to roll back an order.
type AdjustmentResult struct {
	VariantID string `json:"variant_id"`
	Success   bool   `json:"success"`
	Previous  int64  `json:"previous,omitempty"`
	New       int64  `json:"new,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NextStock applies the inventory decrement rule: stock never goes negative.
func NextStock(current int64, requested int) int64 {
	next := current - int64(requested)
	if next < 0 {
		return 0
	}
	return next
}

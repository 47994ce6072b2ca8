package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/pkg/logger"
)

// InventoryAPI is the slice of the commerce client the reconciler needs.
type InventoryAPI interface {
	GetVariantInventory(ctx context.Context, variantID string) (int64, error)
	SetVariantInventory(ctx context.Context, variantID string, qty int64) error
}

const defaultReconcileConcurrency = 4

// InventoryReconciler decrements backend stock after a completed checkout.
// Adjustments are best effort: one variant failing never blocks the others,
// and the caller receives one result per requested item, in order.
type InventoryReconciler struct {
	inventory   InventoryAPI
	concurrency int
	logger      *slog.Logger
}

func NewInventoryReconciler(inventory InventoryAPI, concurrency int, log *slog.Logger) *InventoryReconciler {
	if concurrency <= 0 {
		concurrency = defaultReconcileConcurrency
	}
	return &InventoryReconciler{
		inventory:   inventory,
		concurrency: concurrency,
		logger:      log,
	}
}

// Reconcile reads current stock for each item, applies the decrement rule and
// writes the new level back. Stock never goes below zero. The returned slice
// always has len(items) entries.
func (r *InventoryReconciler) Reconcile(ctx context.Context, items []domain.ItemAdjustment) []domain.AdjustmentResult {
	results := make([]domain.AdjustmentResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, item := range items {
		g.Go(func() error {
			results[i] = r.adjustOne(gctx, item)
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *InventoryReconciler) adjustOne(ctx context.Context, item domain.ItemAdjustment) domain.AdjustmentResult {
	log := logger.WithContext(ctx, r.logger)
	result := domain.AdjustmentResult{VariantID: item.VariantID}

	if item.VariantID == "" {
		result.Error = "missing variant id"
		inventoryAdjustments.WithLabelValues("skipped").Inc()
		return result
	}
	if item.Quantity < 0 {
		result.Error = "negative quantity"
		inventoryAdjustments.WithLabelValues("skipped").Inc()
		return result
	}

	current, err := r.inventory.GetVariantInventory(ctx, item.VariantID)
	if err != nil {
		log.Warn("inventory read failed, leaving stock untouched",
			"variant_id", item.VariantID, "error", err)
		result.Error = err.Error()
		inventoryAdjustments.WithLabelValues("failed").Inc()
		return result
	}

	next := domain.NextStock(current, item.Quantity)
	if err := r.inventory.SetVariantInventory(ctx, item.VariantID, next); err != nil {
		log.Warn("inventory write failed",
			"variant_id", item.VariantID, "current", current, "next", next, "error", err)
		result.Previous = current
		result.Error = err.Error()
		inventoryAdjustments.WithLabelValues("failed").Inc()
		return result
	}

	log.Info("adjusted variant stock",
		"variant_id", item.VariantID, "previous", current, "new", next)
	result.Success = true
	result.Previous = current
	result.New = next
	inventoryAdjustments.WithLabelValues("adjusted").Inc()
	return result
}

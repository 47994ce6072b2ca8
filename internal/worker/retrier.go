package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/etianguis/checkout/internal/commerce"
	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/internal/repository"
	"github.com/etianguis/checkout/internal/service"
)

// CompletedNotifier announces orders the worker managed to confirm.
type CompletedNotifier interface {
	OrderCompleted(ctx context.Context, order *domain.Order) error
}

// Config controls the retry sweep.
type Config struct {
	Interval  time.Duration
	BatchSize int
	MaxTries  uint
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxTries == 0 {
		c.MaxTries = 3
	}
}

// ManualOrderRetrier periodically re-attempts backend completion for
// synthetic orders. A manual order that completes is marked with the backend
// order id and announced on the completed topic; one that keeps failing stays
// pending for the next sweep.
type ManualOrderRetrier struct {
	repo      repository.OrderRepository
	completer service.CartCompleter
	events    CompletedNotifier
	cfg       Config
	logger    *slog.Logger
}

func NewManualOrderRetrier(
	repo repository.OrderRepository,
	completer service.CartCompleter,
	events CompletedNotifier,
	cfg Config,
	log *slog.Logger,
) *ManualOrderRetrier {
	cfg.applyDefaults()
	return &ManualOrderRetrier{
		repo:      repo,
		completer: completer,
		events:    events,
		cfg:       cfg,
		logger:    log,
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (w *ManualOrderRetrier) Run(ctx context.Context) {
	w.logger.Info("manual order retrier started",
		"interval", w.cfg.Interval, "batch_size", w.cfg.BatchSize)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("manual order retrier stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep retries every pending manual order in the current batch.
func (w *ManualOrderRetrier) Sweep(ctx context.Context) {
	orders, err := w.repo.ListPendingManual(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("listing pending manual orders failed", "error", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	w.logger.Info("retrying pending manual orders", "count", len(orders))
	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		w.retryOne(ctx, order)
	}
}

func (w *ManualOrderRetrier) retryOne(ctx context.Context, manual *domain.Order) {
	operation := func() (*domain.Order, error) {
		order, err := w.completer.CompleteCart(ctx, manual.CartID)
		if err != nil {
			// A definitive backend rejection will not heal within this
			// sweep; stop retrying and revisit it next interval.
			if status, ok := commerce.IsRejection(err); ok && status < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return order, nil
	}

	confirmed, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(w.cfg.MaxTries),
	)
	if err != nil {
		w.logger.Warn("manual order still unconfirmed",
			"order_id", manual.ID, "cart_id", manual.CartID, "error", err)
		return
	}

	if err := w.repo.MarkCompleted(ctx, manual.ID, confirmed.ID); err != nil {
		w.logger.Error("marking manual order completed failed",
			"order_id", manual.ID, "backend_order_id", confirmed.ID, "error", err)
		return
	}

	if w.events != nil {
		if err := w.events.OrderCompleted(ctx, confirmed); err != nil {
			w.logger.Warn("publishing completion event failed",
				"order_id", confirmed.ID, "error", err)
		}
	}

	w.logger.Info("manual order confirmed by backend",
		"order_id", manual.ID, "backend_order_id", confirmed.ID)
}

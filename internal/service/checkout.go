package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/etianguis/checkout/internal/commerce"
	"github.com/etianguis/checkout/internal/domain"
	apperrors "github.com/etianguis/checkout/pkg/errors"
	"github.com/etianguis/checkout/pkg/logger"
)

// CartAPI is the slice of the commerce client the orchestrator drives during
// cart preparation.
type CartAPI interface {
	UpdateCart(ctx context.Context, cartID string, params commerce.UpdateCartParams) (*domain.Cart, error)
	AddShippingMethod(ctx context.Context, cartID, optionID string) error
	CreatePaymentCollection(ctx context.Context, cartID string) (string, error)
	CreatePaymentSession(ctx context.Context, collectionID, providerID string) error
}

// Finalizer turns a prepared cart into exactly one order.
type Finalizer interface {
	Finalize(ctx context.Context, data FallbackData) Completion
}

// Reconciler adjusts backend stock after a completed checkout.
type Reconciler interface {
	Reconcile(ctx context.Context, items []domain.ItemAdjustment) []domain.AdjustmentResult
}

// Mailer sends the order confirmation email.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
}

// OrderRecorder persists the order outcome locally.
type OrderRecorder interface {
	Record(ctx context.Context, order *domain.Order) error
}

// EventPublisher emits order lifecycle events.
type EventPublisher interface {
	OrderCompleted(ctx context.Context, order *domain.Order) error
	OrderPendingManual(ctx context.Context, order *domain.Order) error
}

// StepTimeouts bounds each pipeline stage independently so one slow backend
// call cannot consume the whole request budget.
type StepTimeouts struct {
	Cart      time.Duration
	Complete  time.Duration
	Inventory time.Duration
	Notify    time.Duration
}

func (t *StepTimeouts) applyDefaults() {
	if t.Cart <= 0 {
		t.Cart = 10 * time.Second
	}
	if t.Complete <= 0 {
		t.Complete = 15 * time.Second
	}
	if t.Inventory <= 0 {
		t.Inventory = 20 * time.Second
	}
	if t.Notify <= 0 {
		t.Notify = 10 * time.Second
	}
}

// CheckoutInput is everything the pipeline needs to finish a checkout.
type CheckoutInput struct {
	CartID            string
	Email             string
	ShippingAddress   *domain.Address
	Items             []domain.LineItem
	ShippingOptionID  string
	PaymentProviderID string
	Metadata          map[string]string
}

// Result is the terminal outcome of a checkout attempt. Success is false only
// when preconditions fail before the pipeline starts; once the pipeline runs,
// the checkout always concludes with an order.
type Result struct {
	Success          bool                      `json:"success"`
	Order            *domain.Order             `json:"order"`
	CompletedViaAPI  bool                      `json:"completed_via_api"`
	InventoryUpdated bool                      `json:"inventory_updated"`
	InventoryResults []domain.AdjustmentResult `json:"inventory_results,omitempty"`
	InventoryErrors  []string                  `json:"inventory_errors,omitempty"`
}

// CheckoutService orchestrates the checkout pipeline: cart preparation,
// payment setup, inventory reconciliation, finalization with fallback,
// notification, persistence and event publication.
type CheckoutService struct {
	commerce   CartAPI
	finalizer  Finalizer
	reconciler Reconciler
	mailer     Mailer
	recorder   OrderRecorder
	events     EventPublisher
	timeouts   StepTimeouts
	logger     *slog.Logger
}

func NewCheckoutService(
	commerce CartAPI,
	finalizer Finalizer,
	reconciler Reconciler,
	mailer Mailer,
	recorder OrderRecorder,
	events EventPublisher,
	timeouts StepTimeouts,
	log *slog.Logger,
) *CheckoutService {
	timeouts.applyDefaults()
	return &CheckoutService{
		commerce:   commerce,
		finalizer:  finalizer,
		reconciler: reconciler,
		mailer:     mailer,
		recorder:   recorder,
		events:     events,
		timeouts:   timeouts,
		logger:     log,
	}
}

// Complete runs the full checkout pipeline. An error is returned only for
// precondition failures, before any backend call is made. After that point
// every failure is absorbed: backend steps degrade, finalization falls back
// to a manual order, and side effects are best effort.
func (s *CheckoutService) Complete(ctx context.Context, input CheckoutInput) (*Result, error) {
	log := logger.WithContext(ctx, s.logger)

	if input.CartID == "" {
		return nil, apperrors.InvalidInput("cart id is required")
	}
	// Missing contact details are not preconditions: cart preparation
	// degrades like any other step-1 failure and the backend decides
	// whether it can complete the cart. The HTTP handler still requires
	// them; this keeps the pipeline usable for trusted internal callers.
	if input.Email == "" {
		log.Warn("checkout without email, confirmation will be skipped", "cart_id", input.CartID)
	}
	if input.ShippingAddress == nil {
		log.Warn("checkout without shipping address", "cart_id", input.CartID)
	}

	start := time.Now()
	defer func() {
		checkoutDuration.Observe(time.Since(start).Seconds())
	}()

	log.Info("starting checkout", "cart_id", input.CartID, "items", len(input.Items))

	s.prepareCart(ctx, input)
	s.preparePayment(ctx, input)

	result := &Result{Success: true}
	s.reconcileInventory(ctx, input, result)

	completion := s.finalize(ctx, input)
	result.Order = completion.Order
	result.CompletedViaAPI = completion.ViaAPI
	if completion.ViaAPI {
		ordersCompleted.WithLabelValues("api").Inc()
	} else {
		ordersCompleted.WithLabelValues("fallback").Inc()
	}

	s.notify(ctx, completion.Order)
	s.record(ctx, completion.Order)
	s.publish(ctx, completion)

	log.Info("checkout finished",
		"cart_id", input.CartID,
		"order_id", completion.Order.ID,
		"via_api", completion.ViaAPI,
		"inventory_updated", result.InventoryUpdated,
	)
	return result, nil
}

// prepareCart attaches customer details and the shipping method. Failures are
// logged and absorbed; an unprepared cart will surface during finalization and
// degrade to a manual order there.
func (s *CheckoutService) prepareCart(ctx context.Context, input CheckoutInput) {
	log := logger.WithContext(ctx, s.logger)
	cartCtx, cancel := context.WithTimeout(ctx, s.timeouts.Cart)
	defer cancel()

	_, err := s.commerce.UpdateCart(cartCtx, input.CartID, commerce.UpdateCartParams{
		Email:           input.Email,
		ShippingAddress: input.ShippingAddress,
		Metadata:        input.Metadata,
	})
	if err != nil {
		log.Warn("cart update failed", "cart_id", input.CartID, "error", err)
	}

	if input.ShippingOptionID != "" {
		if err := s.commerce.AddShippingMethod(cartCtx, input.CartID, input.ShippingOptionID); err != nil {
			log.Warn("adding shipping method failed", "cart_id", input.CartID, "error", err)
		}
	}
}

// preparePayment opens a payment collection and session. Same degradation
// rule as cart preparation.
func (s *CheckoutService) preparePayment(ctx context.Context, input CheckoutInput) {
	log := logger.WithContext(ctx, s.logger)
	payCtx, cancel := context.WithTimeout(ctx, s.timeouts.Cart)
	defer cancel()

	collectionID, err := s.commerce.CreatePaymentCollection(payCtx, input.CartID)
	if err != nil {
		log.Warn("creating payment collection failed", "cart_id", input.CartID, "error", err)
		return
	}

	provider := input.PaymentProviderID
	if provider == "" {
		provider = "pp_system_default"
	}
	if err := s.commerce.CreatePaymentSession(payCtx, collectionID, provider); err != nil {
		log.Warn("creating payment session failed",
			"cart_id", input.CartID, "collection_id", collectionID, "error", err)
	}
}

func (s *CheckoutService) finalize(ctx context.Context, input CheckoutInput) Completion {
	completeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Complete)
	defer cancel()

	return s.finalizer.Finalize(completeCtx, FallbackData{
		CartID:          input.CartID,
		Email:           input.Email,
		ShippingAddress: input.ShippingAddress,
		Items:           input.Items,
	})
}

func (s *CheckoutService) reconcileInventory(ctx context.Context, input CheckoutInput, result *Result) {
	if len(input.Items) == 0 {
		return
	}

	invCtx, cancel := context.WithTimeout(ctx, s.timeouts.Inventory)
	defer cancel()

	adjustments := make([]domain.ItemAdjustment, len(input.Items))
	for i, item := range input.Items {
		adjustments[i] = domain.ItemAdjustment{VariantID: item.VariantID, Quantity: item.Quantity}
	}

	result.InventoryResults = s.reconciler.Reconcile(invCtx, adjustments)
	result.InventoryUpdated = true
	for _, r := range result.InventoryResults {
		if !r.Success {
			result.InventoryUpdated = false
			result.InventoryErrors = append(result.InventoryErrors, r.Error)
		}
	}
}

func (s *CheckoutService) notify(ctx context.Context, order *domain.Order) {
	if s.mailer == nil || order.Email == "" {
		return
	}
	log := logger.WithContext(ctx, s.logger)

	notifyCtx, cancel := context.WithTimeout(ctx, s.timeouts.Notify)
	defer cancel()

	if err := s.mailer.SendOrderConfirmation(notifyCtx, order); err != nil {
		log.Warn("order confirmation email failed", "order_id", order.ID, "error", err)
		notifications.WithLabelValues("failed").Inc()
		return
	}
	notifications.WithLabelValues("sent").Inc()
}

func (s *CheckoutService) record(ctx context.Context, order *domain.Order) {
	if s.recorder == nil {
		return
	}
	log := logger.WithContext(ctx, s.logger)

	if err := s.recorder.Record(ctx, order); err != nil {
		log.Error("recording order failed", "order_id", order.ID, "error", err)
	}
}

func (s *CheckoutService) publish(ctx context.Context, completion Completion) {
	if s.events == nil {
		return
	}
	log := logger.WithContext(ctx, s.logger)

	var err error
	if completion.ViaAPI {
		err = s.events.OrderCompleted(ctx, completion.Order)
	} else {
		err = s.events.OrderPendingManual(ctx, completion.Order)
	}
	if err != nil {
		log.Warn("publishing order event failed", "order_id", completion.Order.ID, "error", err)
	}
}

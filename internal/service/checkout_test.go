package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/etianguis/checkout/internal/commerce"
	"github.com/etianguis/checkout/internal/domain"
	apperrors "github.com/etianguis/checkout/pkg/errors"
)

type mockCartAPI struct {
	mock.Mock
}

func (m *mockCartAPI) UpdateCart(ctx context.Context, cartID string, params commerce.UpdateCartParams) (*domain.Cart, error) {
	args := m.Called(ctx, cartID, params)
	if cart := args.Get(0); cart != nil {
		return cart.(*domain.Cart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartAPI) AddShippingMethod(ctx context.Context, cartID, optionID string) error {
	return m.Called(ctx, cartID, optionID).Error(0)
}

func (m *mockCartAPI) CreatePaymentCollection(ctx context.Context, cartID string) (string, error) {
	args := m.Called(ctx, cartID)
	return args.String(0), args.Error(1)
}

func (m *mockCartAPI) CreatePaymentSession(ctx context.Context, collectionID, providerID string) error {
	return m.Called(ctx, collectionID, providerID).Error(0)
}

type mockFinalizer struct {
	mock.Mock
}

func (m *mockFinalizer) Finalize(ctx context.Context, data FallbackData) Completion {
	return m.Called(ctx, data).Get(0).(Completion)
}

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) Reconcile(ctx context.Context, items []domain.ItemAdjustment) []domain.AdjustmentResult {
	return m.Called(ctx, items).Get(0).([]domain.AdjustmentResult)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) OrderCompleted(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockEvents) OrderPendingManual(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

type checkoutMocks struct {
	commerce   *mockCartAPI
	finalizer  *mockFinalizer
	reconciler *mockReconciler
	mailer     *mockMailer
	recorder   *mockRecorder
	events     *mockEvents
}

func newCheckoutService(t *testing.T) (*CheckoutService, checkoutMocks) {
	t.Helper()
	m := checkoutMocks{
		commerce:   new(mockCartAPI),
		finalizer:  new(mockFinalizer),
		reconciler: new(mockReconciler),
		mailer:     new(mockMailer),
		recorder:   new(mockRecorder),
		events:     new(mockEvents),
	}
	svc := NewCheckoutService(
		m.commerce, m.finalizer, m.reconciler, m.mailer, m.recorder, m.events,
		StepTimeouts{}, newTestLogger(),
	)
	return svc, m
}

func checkoutInputFixture() CheckoutInput {
	return CheckoutInput{
		CartID:            "cart_1",
		Email:             "ana@example.com",
		ShippingAddress:   &domain.Address{FullName: "Ana Reyes", City: "Oaxaca", Country: "mx"},
		Items:             []domain.LineItem{{Title: "Alebrije chico", VariantID: "variant_1", Quantity: 2, UnitPrice: 35000}},
		ShippingOptionID:  "so_standard",
		PaymentProviderID: "pp_system_default",
	}
}

func TestCompleteRejectsMissingCartID(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()
	input.CartID = ""

	result, err := svc.Complete(context.Background(), input)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	// The precondition is checked before any outbound call.
	m.commerce.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything, mock.Anything)
	m.finalizer.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything)
}

func TestCompleteProceedsWithoutContactDetails(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()
	input.Email = ""
	input.ShippingAddress = nil

	backendOrder := &domain.Order{ID: "order_9", CartID: "cart_1", Status: domain.OrderStatusCompleted}

	m.commerce.On("UpdateCart", mock.Anything, "cart_1", mock.MatchedBy(func(p commerce.UpdateCartParams) bool {
		return p.Email == "" && p.ShippingAddress == nil
	})).Return(&domain.Cart{ID: "cart_1"}, nil)
	m.commerce.On("AddShippingMethod", mock.Anything, "cart_1", "so_standard").Return(nil)
	m.commerce.On("CreatePaymentCollection", mock.Anything, "cart_1").Return("paycol_1", nil)
	m.commerce.On("CreatePaymentSession", mock.Anything, "paycol_1", "pp_system_default").Return(nil)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: backendOrder, ViaAPI: true})
	m.reconciler.On("Reconcile", mock.Anything, mock.Anything).
		Return([]domain.AdjustmentResult{{VariantID: "variant_1", Success: true}})
	m.recorder.On("Record", mock.Anything, backendOrder).Return(nil)
	m.events.On("OrderCompleted", mock.Anything, backendOrder).Return(nil)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.CompletedViaAPI)

	// No recipient, no confirmation email.
	m.mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
	m.commerce.AssertExpectations(t)
}

func TestCompleteHappyPath(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()

	backendOrder := &domain.Order{ID: "order_9", CartID: "cart_1", Status: domain.OrderStatusCompleted, Email: input.Email}

	m.commerce.On("UpdateCart", mock.Anything, "cart_1", mock.MatchedBy(func(p commerce.UpdateCartParams) bool {
		return p.Email == input.Email && p.ShippingAddress == input.ShippingAddress
	})).Return(&domain.Cart{ID: "cart_1"}, nil)
	m.commerce.On("AddShippingMethod", mock.Anything, "cart_1", "so_standard").Return(nil)
	m.commerce.On("CreatePaymentCollection", mock.Anything, "cart_1").Return("paycol_1", nil)
	m.commerce.On("CreatePaymentSession", mock.Anything, "paycol_1", "pp_system_default").Return(nil)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: backendOrder, ViaAPI: true})
	m.reconciler.On("Reconcile", mock.Anything, []domain.ItemAdjustment{{VariantID: "variant_1", Quantity: 2}}).
		Return([]domain.AdjustmentResult{{VariantID: "variant_1", Success: true, Previous: 5, New: 3}})
	m.mailer.On("SendOrderConfirmation", mock.Anything, backendOrder).Return(nil)
	m.recorder.On("Record", mock.Anything, backendOrder).Return(nil)
	m.events.On("OrderCompleted", mock.Anything, backendOrder).Return(nil)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.CompletedViaAPI)
	assert.True(t, result.InventoryUpdated)
	assert.Equal(t, "order_9", result.Order.ID)
	assert.Empty(t, result.InventoryErrors)

	m.commerce.AssertExpectations(t)
	m.finalizer.AssertExpectations(t)
	m.reconciler.AssertExpectations(t)
	m.mailer.AssertExpectations(t)
	m.recorder.AssertExpectations(t)
	m.events.AssertExpectations(t)
	m.events.AssertNotCalled(t, "OrderPendingManual", mock.Anything, mock.Anything)
}

func TestCompleteFallsBackToManualOrder(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()

	manual := domain.NewManualOrder(input.CartID, input.Email, input.ShippingAddress, input.Items)

	m.commerce.On("UpdateCart", mock.Anything, "cart_1", mock.Anything).Return(&domain.Cart{ID: "cart_1"}, nil)
	m.commerce.On("AddShippingMethod", mock.Anything, "cart_1", "so_standard").Return(nil)
	m.commerce.On("CreatePaymentCollection", mock.Anything, "cart_1").Return("paycol_1", nil)
	m.commerce.On("CreatePaymentSession", mock.Anything, "paycol_1", "pp_system_default").Return(nil)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: manual, ViaAPI: false})
	m.reconciler.On("Reconcile", mock.Anything, mock.Anything).
		Return([]domain.AdjustmentResult{{VariantID: "variant_1", Success: true, Previous: 5, New: 3}})
	m.mailer.On("SendOrderConfirmation", mock.Anything, manual).Return(nil)
	m.recorder.On("Record", mock.Anything, manual).Return(nil)
	m.events.On("OrderPendingManual", mock.Anything, manual).Return(nil)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.CompletedViaAPI)
	assert.True(t, result.Order.IsSynthetic())
	assert.Equal(t, domain.OrderStatusPending, result.Order.Status)
	// Inventory is still reconciled for manual orders.
	assert.True(t, result.InventoryUpdated)

	m.events.AssertExpectations(t)
	m.events.AssertNotCalled(t, "OrderCompleted", mock.Anything, mock.Anything)
}

func TestCompleteSurvivesPreparationFailures(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()

	backendOrder := &domain.Order{ID: "order_9", CartID: "cart_1", Status: domain.OrderStatusCompleted, Email: input.Email}

	m.commerce.On("UpdateCart", mock.Anything, "cart_1", mock.Anything).
		Return(nil, &commerce.TransportError{Op: "update cart", Err: assert.AnError})
	m.commerce.On("AddShippingMethod", mock.Anything, "cart_1", "so_standard").
		Return(&commerce.APIError{Op: "add shipping method", Status: 500, Body: "boom"})
	m.commerce.On("CreatePaymentCollection", mock.Anything, "cart_1").Return("", assert.AnError)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: backendOrder, ViaAPI: true})
	m.reconciler.On("Reconcile", mock.Anything, mock.Anything).
		Return([]domain.AdjustmentResult{{VariantID: "variant_1", Success: true}})
	m.mailer.On("SendOrderConfirmation", mock.Anything, backendOrder).Return(nil)
	m.recorder.On("Record", mock.Anything, backendOrder).Return(nil)
	m.events.On("OrderCompleted", mock.Anything, backendOrder).Return(nil)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, result.Success)
	// A failed payment collection means no session attempt.
	m.commerce.AssertNotCalled(t, "CreatePaymentSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteCollectsInventoryErrors(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()
	input.Items = append(input.Items, domain.LineItem{VariantID: "variant_2", Quantity: 1})

	backendOrder := &domain.Order{ID: "order_9", CartID: "cart_1", Email: input.Email}

	m.commerce.On("UpdateCart", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Cart{ID: "cart_1"}, nil)
	m.commerce.On("AddShippingMethod", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.commerce.On("CreatePaymentCollection", mock.Anything, mock.Anything).Return("paycol_1", nil)
	m.commerce.On("CreatePaymentSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: backendOrder, ViaAPI: true})
	m.reconciler.On("Reconcile", mock.Anything, mock.Anything).Return([]domain.AdjustmentResult{
		{VariantID: "variant_1", Success: true, Previous: 5, New: 3},
		{VariantID: "variant_2", Success: false, Error: "read timeout"},
	})
	m.mailer.On("SendOrderConfirmation", mock.Anything, backendOrder).Return(nil)
	m.recorder.On("Record", mock.Anything, backendOrder).Return(nil)
	m.events.On("OrderCompleted", mock.Anything, backendOrder).Return(nil)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.InventoryUpdated)
	assert.Equal(t, []string{"read timeout"}, result.InventoryErrors)
	require.Len(t, result.InventoryResults, 2)
}

func TestCompleteSkipsReconcileWithoutItems(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()
	input.Items = nil
	input.ShippingOptionID = ""

	backendOrder := &domain.Order{ID: "order_9", CartID: "cart_1", Email: input.Email}

	m.commerce.On("UpdateCart", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Cart{ID: "cart_1"}, nil)
	m.commerce.On("CreatePaymentCollection", mock.Anything, mock.Anything).Return("paycol_1", nil)
	m.commerce.On("CreatePaymentSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: backendOrder, ViaAPI: true})
	m.mailer.On("SendOrderConfirmation", mock.Anything, backendOrder).Return(nil)
	m.recorder.On("Record", mock.Anything, backendOrder).Return(nil)
	m.events.On("OrderCompleted", mock.Anything, backendOrder).Return(nil)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.False(t, result.InventoryUpdated)
	assert.Empty(t, result.InventoryResults)
	m.reconciler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
}

func TestCompleteSideEffectFailuresDoNotEscape(t *testing.T) {
	svc, m := newCheckoutService(t)
	input := checkoutInputFixture()

	backendOrder := &domain.Order{ID: "order_9", CartID: "cart_1", Email: input.Email}

	m.commerce.On("UpdateCart", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Cart{ID: "cart_1"}, nil)
	m.commerce.On("AddShippingMethod", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.commerce.On("CreatePaymentCollection", mock.Anything, mock.Anything).Return("paycol_1", nil)
	m.commerce.On("CreatePaymentSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.finalizer.On("Finalize", mock.Anything, mock.Anything).Return(Completion{Order: backendOrder, ViaAPI: true})
	m.reconciler.On("Reconcile", mock.Anything, mock.Anything).
		Return([]domain.AdjustmentResult{{VariantID: "variant_1", Success: true}})
	m.mailer.On("SendOrderConfirmation", mock.Anything, backendOrder).Return(assert.AnError)
	m.recorder.On("Record", mock.Anything, backendOrder).Return(assert.AnError)
	m.events.On("OrderCompleted", mock.Anything, backendOrder).Return(assert.AnError)

	result, err := svc.Complete(context.Background(), input)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "order_9", result.Order.ID)
}

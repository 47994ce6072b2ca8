package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/etianguis/checkout/internal/commerce"
	"github.com/etianguis/checkout/internal/domain"
)

type mockCartCompleter struct {
	mock.Mock
}

func (m *mockCartCompleter) CompleteCart(ctx context.Context, cartID string) (*domain.Order, error) {
	args := m.Called(ctx, cartID)
	if order := args.Get(0); order != nil {
		return order.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func fallbackFixture() FallbackData {
	return FallbackData{
		CartID: "cart_1",
		Email:  "ana@example.com",
		ShippingAddress: &domain.Address{
			FullName: "Ana Reyes",
			City:     "Oaxaca",
			Country:  "mx",
		},
		Items: []domain.LineItem{
			{Title: "Alebrije chico", VariantID: "variant_1", Quantity: 2, UnitPrice: 35000},
		},
	}
}

func TestFinalizeViaBackend(t *testing.T) {
	backend := new(mockCartCompleter)
	backend.On("CompleteCart", mock.Anything, "cart_1").Return(&domain.Order{
		ID:     "order_9",
		CartID: "cart_1",
		Status: domain.OrderStatusCompleted,
	}, nil)

	f := NewOrderFinalizer(backend, newTestLogger())
	completion := f.Finalize(context.Background(), fallbackFixture())

	assert.True(t, completion.ViaAPI)
	assert.Equal(t, "order_9", completion.Order.ID)
	assert.False(t, completion.Order.IsSynthetic())
	backend.AssertExpectations(t)
}

func TestFinalizeFallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "backend error",
			err:  &commerce.APIError{Op: "complete cart", Status: 500, Body: "boom"},
		},
		{
			name: "backend rejection",
			err:  &commerce.APIError{Op: "complete cart", Status: 422, Body: "cart not ready"},
		},
		{
			name: "transport failure",
			err:  &commerce.TransportError{Op: "complete cart", Err: context.DeadlineExceeded},
		},
		{
			name: "malformed response",
			err:  &commerce.MalformedResponseError{Op: "complete cart", Err: assert.AnError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(mockCartCompleter)
			backend.On("CompleteCart", mock.Anything, "cart_1").Return(nil, tt.err)

			data := fallbackFixture()
			f := NewOrderFinalizer(backend, newTestLogger())
			completion := f.Finalize(context.Background(), data)

			require.NotNil(t, completion.Order)
			assert.False(t, completion.ViaAPI)
			assert.True(t, completion.Order.IsSynthetic())
			assert.Equal(t, domain.OrderStatusPending, completion.Order.Status)
			assert.Equal(t, "cart_1", completion.Order.CartID)
			assert.Equal(t, data.Email, completion.Order.Email)
			assert.Equal(t, data.Items, completion.Order.Items)
			assert.Equal(t, "true", completion.Order.Metadata[domain.MetadataCreatedManually])
		})
	}
}

func TestFailureClass(t *testing.T) {
	assert.Equal(t, "transport", failureClass(&commerce.TransportError{Err: assert.AnError}))
	assert.Equal(t, "malformed_response", failureClass(&commerce.MalformedResponseError{Err: assert.AnError}))
	assert.Equal(t, "backend_error", failureClass(&commerce.APIError{Status: 503}))
	assert.Equal(t, "backend_rejection", failureClass(&commerce.APIError{Status: 400}))
	assert.Equal(t, "unknown", failureClass(assert.AnError))
}

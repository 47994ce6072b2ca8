package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/internal/repository"
	"github.com/etianguis/checkout/internal/service"
	apperrors "github.com/etianguis/checkout/pkg/errors"
	"github.com/etianguis/checkout/pkg/httputil"
	"github.com/etianguis/checkout/pkg/validator"
)

// CheckoutCompleter runs the checkout pipeline.
type CheckoutCompleter interface {
	Complete(ctx context.Context, input service.CheckoutInput) (*service.Result, error)
}

// OrderStore reads recorded orders.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// CheckoutHandler exposes the checkout pipeline over HTTP.
type CheckoutHandler struct {
	checkout CheckoutCompleter
	orders   OrderStore
	logger   *slog.Logger
}

func NewCheckoutHandler(checkout CheckoutCompleter, orders OrderStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, orders: orders, logger: logger}
}

type addressRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code" validate:"required"`
	Country     string `json:"country" validate:"required,len=2"`
	Phone       string `json:"phone"`
}

type itemRequest struct {
	Title     string `json:"title"`
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
}

type completeCheckoutRequest struct {
	Email             string            `json:"email" validate:"required,email"`
	ShippingAddress   *addressRequest   `json:"shipping_address" validate:"required"`
	Items             []itemRequest     `json:"items" validate:"dive"`
	ShippingOptionID  string            `json:"shipping_option_id"`
	PaymentProviderID string            `json:"payment_provider_id"`
	Metadata          map[string]string `json:"metadata"`
}

// CompleteCheckout handles POST /api/v1/checkout/{cartID}/complete.
func (h *CheckoutHandler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if cartID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("cart id is required"), h.logger)
		return
	}

	var req completeCheckoutRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.CheckoutInput{
		CartID: cartID,
		Email:  req.Email,
		ShippingAddress: &domain.Address{
			FullName:    req.ShippingAddress.FullName,
			AddressLine: req.ShippingAddress.AddressLine,
			City:        req.ShippingAddress.City,
			State:       req.ShippingAddress.State,
			PostalCode:  req.ShippingAddress.PostalCode,
			Country:     req.ShippingAddress.Country,
			Phone:       req.ShippingAddress.Phone,
		},
		ShippingOptionID:  req.ShippingOptionID,
		PaymentProviderID: req.PaymentProviderID,
		Metadata:          req.Metadata,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, domain.LineItem{
			Title:     item.Title,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	result, err := h.checkout.Complete(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetOrder handles GET /api/v1/orders/{orderID}.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.orders.GetByID(r.Context(), orderID)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.WriteError(w, r, apperrors.NotFound("order", orderID), h.logger)
		return
	}
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

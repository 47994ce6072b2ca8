package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/etianguis/checkout/internal/domain"
)

// HTTPDoer abstracts the transport so retry and circuit breaker policy can be
// layered in at wiring time.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds commerce backend connection settings.
type Config struct {
	BaseURL        string
	PublishableKey string
	AdminToken     string
	InventoryTTL   time.Duration
}

// Client talks to the commerce backend's store and admin APIs. Store calls
// authenticate with the publishable key, admin calls with the bearer token.
// Every method maps failures onto the package error taxonomy; the client
// itself never retries, that is the transport's job.
type Client struct {
	cfg    Config
	http   HTTPDoer
	logger *slog.Logger
	cache  InventoryCache

	inventory *inventoryCapability
}

// NewClient constructs a commerce client. cache may be nil to disable
// inventory read caching.
func NewClient(cfg Config, doer HTTPDoer, cache InventoryCache, logger *slog.Logger) *Client {
	if cfg.InventoryTTL <= 0 {
		cfg.InventoryTTL = 30 * time.Second
	}
	return &Client{
		cfg:       cfg,
		http:      doer,
		logger:    logger,
		cache:     cache,
		inventory: newInventoryCapability(),
	}
}

type cartEnvelope struct {
	Cart *domain.Cart `json:"cart"`
}

type paymentCollectionEnvelope struct {
	PaymentCollection struct {
		ID string `json:"id"`
	} `json:"payment_collection"`
}

type completionEnvelope struct {
	Type  string        `json:"type"`
	Order *domain.Order `json:"order"`
}

type variantEnvelope struct {
	Variant struct {
		ID                string `json:"id"`
		InventoryQuantity int64  `json:"inventory_quantity"`
	} `json:"variant"`
}

// CreateCartParams are the optional fields accepted when opening a cart.
type CreateCartParams struct {
	Email    string            `json:"email,omitempty"`
	RegionID string            `json:"region_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateCart opens a new cart on the backend.
func (c *Client) CreateCart(ctx context.Context, params CreateCartParams) (*domain.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/store/carts", false, params, &env, "create cart"); err != nil {
		return nil, err
	}
	if env.Cart == nil || env.Cart.ID == "" {
		return nil, &MalformedResponseError{Op: "create cart", Err: fmt.Errorf("response missing cart")}
	}
	return env.Cart, nil
}

// UpdateCartParams carries the customer details attached before completion.
type UpdateCartParams struct {
	Email           string            `json:"email,omitempty"`
	ShippingAddress *domain.Address   `json:"shipping_address,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// UpdateCart attaches email, shipping address and metadata to an open cart.
func (c *Client) UpdateCart(ctx context.Context, cartID string, params UpdateCartParams) (*domain.Cart, error) {
	var env cartEnvelope
	path := fmt.Sprintf("/store/carts/%s", cartID)
	if err := c.do(ctx, http.MethodPost, path, false, params, &env, "update cart"); err != nil {
		return nil, err
	}
	if env.Cart == nil {
		return nil, &MalformedResponseError{Op: "update cart", Err: fmt.Errorf("response missing cart")}
	}
	return env.Cart, nil
}

// AddLineItem appends a variant to the cart.
func (c *Client) AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*domain.Cart, error) {
	body := map[string]any{"variant_id": variantID, "quantity": quantity}
	var env cartEnvelope
	path := fmt.Sprintf("/store/carts/%s/line-items", cartID)
	if err := c.do(ctx, http.MethodPost, path, false, body, &env, "add line item"); err != nil {
		return nil, err
	}
	if env.Cart == nil {
		return nil, &MalformedResponseError{Op: "add line item", Err: fmt.Errorf("response missing cart")}
	}
	return env.Cart, nil
}

// AddShippingMethod selects a shipping option for the cart.
func (c *Client) AddShippingMethod(ctx context.Context, cartID, optionID string) error {
	body := map[string]any{"option_id": optionID}
	path := fmt.Sprintf("/store/carts/%s/shipping-methods", cartID)
	return c.do(ctx, http.MethodPost, path, false, body, nil, "add shipping method")
}

// CreatePaymentCollection opens a payment collection for the cart and returns
// its identifier.
func (c *Client) CreatePaymentCollection(ctx context.Context, cartID string) (string, error) {
	body := map[string]any{"cart_id": cartID}
	var env paymentCollectionEnvelope
	if err := c.do(ctx, http.MethodPost, "/store/payment-collections", false, body, &env, "create payment collection"); err != nil {
		return "", err
	}
	if env.PaymentCollection.ID == "" {
		return "", &MalformedResponseError{Op: "create payment collection", Err: fmt.Errorf("response missing payment collection id")}
	}
	return env.PaymentCollection.ID, nil
}

// CreatePaymentSession initializes a payment session on the collection with
// the given provider.
func (c *Client) CreatePaymentSession(ctx context.Context, collectionID, providerID string) error {
	body := map[string]any{"provider_id": providerID}
	path := fmt.Sprintf("/store/payment-collections/%s/payment-sessions", collectionID)
	return c.do(ctx, http.MethodPost, path, false, body, nil, "create payment session")
}

// CompleteCart asks the backend to convert the cart into an order. A 2xx
// response that does not carry an order is reported as malformed; callers
// must not treat it as success.
func (c *Client) CompleteCart(ctx context.Context, cartID string) (*domain.Order, error) {
	var env completionEnvelope
	path := fmt.Sprintf("/store/carts/%s/complete", cartID)
	if err := c.do(ctx, http.MethodPost, path, false, nil, &env, "complete cart"); err != nil {
		return nil, err
	}
	if env.Order == nil || env.Order.ID == "" {
		return nil, &MalformedResponseError{Op: "complete cart", Err: fmt.Errorf("response type %q carries no order", env.Type)}
	}
	if env.Order.CartID == "" {
		env.Order.CartID = cartID
	}
	return env.Order, nil
}

// GetVariantInventory returns the current stock level for a variant, serving
// from the cache when a fresh observation exists.
func (c *Client) GetVariantInventory(ctx context.Context, variantID string) (int64, error) {
	if c.cache != nil {
		if qty, ok := c.cache.Get(ctx, variantID); ok {
			return qty, nil
		}
	}

	var env variantEnvelope
	path := fmt.Sprintf("/admin/variants/%s", variantID)
	if err := c.do(ctx, http.MethodGet, path, true, nil, &env, "get variant inventory"); err != nil {
		return 0, err
	}
	if env.Variant.ID == "" {
		return 0, &MalformedResponseError{Op: "get variant inventory", Err: fmt.Errorf("response missing variant")}
	}

	if c.cache != nil {
		c.cache.Set(ctx, variantID, env.Variant.InventoryQuantity, c.cfg.InventoryTTL)
	}
	return env.Variant.InventoryQuantity, nil
}

// SetVariantInventory writes a new absolute stock level for a variant using
// whichever admin endpoint shape the backend supports. The cached observation
// is invalidated so the next read reflects the write.
func (c *Client) SetVariantInventory(ctx context.Context, variantID string, qty int64) error {
	shape, err := c.inventory.resolve(ctx, c, variantID)
	if err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodPost, shape.path(variantID), true, shape.body(qty), nil, "set variant inventory"); err != nil {
		return err
	}

	if c.cache != nil {
		c.cache.Invalidate(ctx, variantID)
	}
	return nil
}

// do performs a single request and maps the outcome onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, admin bool, body, out any, op string) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("commerce %s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("commerce %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AdminToken)
	} else if c.cfg.PublishableKey != "" {
		req.Header.Set("x-publishable-api-key", c.cfg.PublishableKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// Bound the body read so a misbehaving backend cannot exhaust memory.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &MalformedResponseError{Op: op, Err: err}
		}
	}
	return nil
}

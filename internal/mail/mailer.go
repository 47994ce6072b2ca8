package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/pkg/logger"
)

// HTTPDoer abstracts the transport so retry policy is injected at wiring time.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds mail delivery settings. The sender is an internal HTTP relay
// that accepts a rendered message and hands it to the mail provider.
type Config struct {
	SenderURL string
	From      string
	StoreName string
}

// Client sends transactional mail through the relay. Delivery is best effort;
// callers log failures and move on.
type Client struct {
	cfg    Config
	http   HTTPDoer
	logger *slog.Logger
}

func NewClient(cfg Config, doer HTTPDoer, log *slog.Logger) *Client {
	if cfg.StoreName == "" {
		cfg.StoreName = "E-Tianguis"
	}
	return &Client{cfg: cfg, http: doer, logger: log}
}

type message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendOrderConfirmation renders and sends the confirmation email for an
// order. Synthetic orders get wording that avoids promising a confirmed
// order number.
func (c *Client) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	if order.Email == "" {
		return fmt.Errorf("order %s has no email address", order.ID)
	}

	html, err := renderConfirmation(c.cfg.StoreName, order)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	subject := fmt.Sprintf("%s: confirmación de tu pedido", c.cfg.StoreName)
	if order.IsSynthetic() {
		subject = fmt.Sprintf("%s: recibimos tu pedido", c.cfg.StoreName)
	}

	msg := message{
		From:    c.cfg.From,
		To:      order.Email,
		Subject: subject,
		HTML:    html,
	}

	if err := c.send(ctx, msg); err != nil {
		return err
	}

	logger.WithContext(ctx, c.logger).Info("order confirmation sent",
		"order_id", order.ID, "to", order.Email)
	return nil
}

func (c *Client) send(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SenderURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail relay returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}

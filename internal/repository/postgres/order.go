package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/etianguis/checkout/internal/domain"
	"github.com/etianguis/checkout/internal/repository"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OrderRepository is the Postgres implementation of repository.OrderRepository.
type OrderRepository struct {
	db DB
}

func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const insertOrderSQL = `
	INSERT INTO orders (
		id, cart_id, status, payment_status, fulfillment_status,
		email, shipping_address, items, metadata, created_manually, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO NOTHING`

// Record inserts the order outcome. Re-recording the same order is a no-op so
// retried checkouts stay idempotent.
func (r *OrderRepository) Record(ctx context.Context, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	metadata, err := json.Marshal(order.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, insertOrderSQL,
		order.ID, order.CartID, order.Status, order.PaymentStatus, order.FulfillmentStatus,
		order.Email, address, items, metadata, order.IsSynthetic(), order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

const selectOrderSQL = `
	SELECT id, cart_id, status, payment_status, fulfillment_status,
	       email, shipping_address, items, metadata, created_at
	FROM orders`

// GetByID fetches a single recorded order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, selectOrderSQL+" WHERE id = $1", id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return order, nil
}

// ListPendingManual returns synthetic orders still awaiting backend
// confirmation, oldest first.
func (r *OrderRepository) ListPendingManual(ctx context.Context, limit int) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx,
		selectOrderSQL+` WHERE created_manually AND status = $1 ORDER BY created_at ASC LIMIT $2`,
		domain.OrderStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending manual orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending manual order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkCompleted records that the backend confirmed a previously synthetic
// order under backendOrderID.
func (r *OrderRepository) MarkCompleted(ctx context.Context, manualID, backendOrderID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders
		 SET status = $2, metadata = metadata || jsonb_build_object('backend_order_id', $3::text),
		     updated_at = now()
		 WHERE id = $1`,
		manualID, domain.OrderStatusCompleted, backendOrderID,
	)
	if err != nil {
		return fmt.Errorf("mark order %s completed: %w", manualID, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order    domain.Order
		address  []byte
		items    []byte
		metadata []byte
	)
	err := row.Scan(
		&order.ID, &order.CartID, &order.Status, &order.PaymentStatus, &order.FulfillmentStatus,
		&order.Email, &address, &items, &metadata, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(address) > 0 && string(address) != "null" {
		if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &order.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &order, nil
}

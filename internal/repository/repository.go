package repository

import (
	"context"
	"errors"

	"github.com/etianguis/checkout/internal/domain"
)

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// OrderRepository persists checkout outcomes. The local store is a write-side
// record of every order the service produced, authoritative only for
// synthetic orders awaiting backend reconciliation.
type OrderRepository interface {
	Record(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListPendingManual(ctx context.Context, limit int) ([]*domain.Order, error)
	MarkCompleted(ctx context.Context, manualID, backendOrderID string) error
}

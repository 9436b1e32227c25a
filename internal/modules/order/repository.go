package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for orders.
type Repository interface {
	// Create assigns an order number and persists o.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	// UpdateStatus moves o from its loaded status to status. It fails with a
	// conflict when the stored status no longer matches.
	UpdateStatus(ctx context.Context, o *Order, status OrderStatus) error
}

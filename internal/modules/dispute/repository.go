package dispute

import (
	"context"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/modules/order"
)

// Repository defines data access for disputes. Every write that touches the
// disputed order runs in one transaction with it.
type Repository interface {
	// Open inserts d and moves its order to DISPUTED. It fails with a conflict
	// when the order cannot be disputed or already has an open dispute.
	Open(ctx context.Context, d *Dispute) (*order.Order, error)
	// Settle closes an open dispute with d's status and resolution and moves
	// its order to orderStatus.
	Settle(ctx context.Context, d *Dispute, orderStatus order.OrderStatus) (*order.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error)
	List(ctx context.Context, f ListFilter) ([]Dispute, error)
	SetEvidence(ctx context.Context, id uuid.UUID, url string) error
}

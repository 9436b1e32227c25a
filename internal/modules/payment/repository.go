package payment

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Repository defines data access for payments.
type Repository interface {
	// Create locks the order row, hands reserve the sum of the order's
	// payments that are not FAILED or REFUNDED, and inserts p only when
	// reserve returns nil. reserve may set p.Amount.
	Create(ctx context.Context, p *Payment, reserve func(committed float64) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	GetByProviderRef(ctx context.Context, provider Provider, ref string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
	List(ctx context.Context, f ListFilter) ([]Payment, error)

	// UpdateStatus moves p from its loaded status to status. A concurrent
	// change is reported as a conflict.
	UpdateStatus(ctx context.Context, p *Payment, status TxStatus, providerStatus, lastError string) error
	UpdateProviderRef(ctx context.Context, id uuid.UUID, ref, providerStatus string) error
	SetProof(ctx context.Context, id uuid.UUID, url string) error
	RecordWebhook(ctx context.Context, id uuid.UUID, payload json.RawMessage) error
	IncrementRetry(ctx context.Context, id uuid.UUID, lastError string) error
}

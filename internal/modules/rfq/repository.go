package rfq

import (
	"context"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/modules/order"
)

// Repository defines data access for RFQs and their quotes.
type Repository interface {
	Create(ctx context.Context, r *RFQ) error
	GetByID(ctx context.Context, id uuid.UUID) (*RFQ, error)
	List(ctx context.Context, f ListFilter) ([]RFQ, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	SetAttachment(ctx context.Context, id uuid.UUID, url string) error

	// CreateQuote fails with a conflict when the factory already quoted.
	CreateQuote(ctx context.Context, q *Quote) error
	GetQuote(ctx context.Context, id uuid.UUID) (*Quote, error)
	ListQuotes(ctx context.Context, rfqID uuid.UUID) ([]Quote, error)
	ListQuotesByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Quote, error)
	HasQuoted(ctx context.Context, rfqID, factoryID uuid.UUID) (bool, error)

	// Award inserts o and marks the quote and its RFQ AWARDED in one
	// transaction. It fails with a conflict when either is no longer
	// awardable.
	Award(ctx context.Context, rfqID, quoteID uuid.UUID, o *order.Order) error
}

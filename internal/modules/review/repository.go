package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for reviews.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	List(ctx context.Context, f ListFilter) ([]Review, error)
	Summarize(ctx context.Context, factoryID uuid.UUID) (*Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

package product

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

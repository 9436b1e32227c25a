package factory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for factory profiles.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// Save writes every mutable column of p.
	Save(ctx context.Context, p *Profile) error
	ListByStatus(ctx context.Context, status VerificationStatus) ([]Profile, error)
	ListWithPendingChanges(ctx context.Context) ([]Profile, error)
	Directory(ctx context.Context, f DirectoryFilter) ([]Public, error)
	GetPublic(ctx context.Context, id uuid.UUID) (*Public, error)
}

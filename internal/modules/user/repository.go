package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for users.
type Repository interface {
	// Create inserts u together with an empty buyer or factory profile named
	// companyName, in one transaction. ADMIN users get no profile.
	Create(ctx context.Context, u *User, companyName string) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error
	List(ctx context.Context, f ListFilter) ([]User, error)
}

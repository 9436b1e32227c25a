package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Service defines the interface for user-related business logic.
type Service interface {
	// GetUser returns a user by id.
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// ListUsers is the admin user directory.
	ListUsers(ctx context.Context, f ListFilter) ([]User, error)
	// SetBanned bans or unbans a user. Admins cannot be banned, nor can the
	// caller ban themself.
	SetBanned(ctx context.Context, actor identity.Identity, id uuid.UUID, banned bool) (*User, error)
	// EnsureAdmin creates the bootstrap administrator if the email is unused.
	EnsureAdmin(ctx context.Context, email, password, name string) (bool, error)
}

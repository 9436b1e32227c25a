package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/modules/user"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Register creates a BUYER or FACTORY account with an empty profile.
	Register(ctx context.Context, req RegisterRequest) (*user.User, error)
	// Login checks credentials and issues a signed token.
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	// Me returns the account behind an identity.
	Me(ctx context.Context, id uuid.UUID) (*user.User, error)
	// ChangePassword replaces the password after checking the current one.
	ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error
	// Authenticate validates a token and returns the caller identity.
	Authenticate(ctx context.Context, token string) (identity.Identity, error)
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

type RegisterRequest struct {
	Email       string        `json:"email"        validate:"required,email,max=254"`
	Password    string        `json:"password"     validate:"required,min=8,max=72"`
	Name        string        `json:"name"         validate:"required,max=120"`
	Phone       string        `json:"phone"        validate:"max=32"`
	Role        identity.Role `json:"role"         validate:"required,oneof=BUYER FACTORY"`
	CompanyName string        `json:"company_name" validate:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expires_at"`
	User      *user.User `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

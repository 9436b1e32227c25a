package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

type service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListUsers(ctx context.Context, f ListFilter) ([]User, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, apperr.Invalid("unknown role %q", f.Role)
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

func (s *service) SetBanned(ctx context.Context, actor identity.Identity, id uuid.UUID, banned bool) (*User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can ban users")
	}
	if actor.UserID == id {
		return nil, apperr.Invalid("you cannot ban yourself")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == identity.RoleAdmin {
		return nil, apperr.Forbidden("admins cannot be banned")
	}
	if err := s.repo.SetBanned(ctx, id, banned); err != nil {
		return nil, fmt.Errorf("update ban flag: %w", err)
	}
	u.IsBanned = banned
	return u, nil
}

func (s *service) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         identity.RoleAdmin,
	}
	if err := s.repo.Create(ctx, u, ""); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

// HashPassword bcrypt-hashes a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password with a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

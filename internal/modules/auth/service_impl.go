package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/modules/user"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// Claims is the JWT payload. Subject holds the user id.
type Claims struct {
	Role identity.Role `json:"role"`
	jwt.StandardClaims
}

type service struct {
	userRepo user.Repository
	jwtKey   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a new auth service signing HS256 tokens with secret.
func NewService(userRepo user.Repository, secret string, ttl time.Duration) Service {
	return &service{userRepo: userRepo, jwtKey: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*user.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = identity.Role(strings.ToUpper(string(req.Role)))
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	hash, err := user.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &user.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
	}
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		company = u.Name
	}
	if err := s.userRepo.Create(ctx, u, company); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if !user.CheckPassword(u.PasswordHash, req.Password) {
		return nil, invalidCredentials()
	}
	if u.IsBanned {
		return nil, apperr.Forbidden("account is suspended")
	}

	expirationTime := s.now().Add(s.ttl)
	claims := &Claims{
		Role: u.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID.String(),
			IssuedAt:  s.now().Unix(),
			ExpiresAt: expirationTime.Unix(),
			Issuer:    "jisr",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResponse{Token: tokenString, ExpiresAt: claims.ExpiresAt, User: u}, nil
}

func (s *service) Me(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return apperr.Invalid("current password is incorrect")
	}
	hash, err := user.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, id, hash)
}

func (s *service) Authenticate(ctx context.Context, tokenString string) (identity.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, fmt.Errorf("invalid or expired token: %w", apperr.ErrUnauthorized)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("malformed token subject: %w", apperr.ErrUnauthorized)
	}

	// Roles and bans can change after issuance, so the stored account wins.
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return identity.Identity{}, fmt.Errorf("account no longer exists: %w", apperr.ErrUnauthorized)
		}
		return identity.Identity{}, err
	}
	if u.IsBanned {
		return identity.Identity{}, apperr.Forbidden("account is suspended")
	}
	return u.Identity(), nil
}

func invalidCredentials() error {
	return fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
}

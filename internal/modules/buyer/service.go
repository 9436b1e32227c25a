package buyer

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// Service manages the caller's own buyer profile.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*Profile, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*Profile, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.CompanyName = req.CompanyName
	p.Country = strings.TrimSpace(req.Country)
	p.City = strings.TrimSpace(req.City)
	p.Industry = strings.TrimSpace(req.Industry)
	p.Phone = strings.TrimSpace(req.Phone)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

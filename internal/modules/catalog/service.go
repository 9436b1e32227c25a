package catalog

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// CacheNamespace holds the public category list.
const CacheNamespace = "categories"

// Service defines the category directory.
type Service interface {
	// ListPublic returns active categories with their active product counts.
	ListPublic(ctx context.Context) ([]Category, error)
	ListAll(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, req CategoryRequest) (*Category, error)
	Update(ctx context.Context, id uuid.UUID, req CategoryRequest) (*Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	cache  cache.Cache
	logger *zap.Logger
}

func NewService(repo Repository, c cache.Cache, logger *zap.Logger) Service {
	return &service{repo: repo, cache: c, logger: logger}
}

func (s *service) ListPublic(ctx context.Context) ([]Category, error) {
	var list []Category
	if s.cache.Get(ctx, CacheNamespace, "active", &list) {
		return list, nil
	}
	list, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, CacheNamespace, "active", list)
	return list, nil
}

func (s *service) ListAll(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx, false)
}

func (s *service) Create(ctx context.Context, req CategoryRequest) (*Category, error) {
	c := &Category{ID: uuid.New(), IsActive: true}
	if err := apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, CacheNamespace)
	s.logger.Info("category created", zap.String("slug", c.Slug))
	return c, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req CategoryRequest) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, CacheNamespace)
	return c, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, CacheNamespace)
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func apply(c *Category, req CategoryRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return err
	}
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if slug == "" {
		return apperr.Invalid("slug must contain letters or digits")
	}
	c.Name = req.Name
	c.Slug = slug
	c.Description = req.Description
	c.SortOrder = req.SortOrder
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return nil
}

// Slugify lowercases s and joins its letter and digit runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

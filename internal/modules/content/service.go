package content

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

// CacheNamespace holds public content entries.
const CacheNamespace = "content"

// maxValueBytes bounds a single content value.
const maxValueBytes = 64 << 10

var keyPattern = regexp.MustCompile(`^[a-z0-9]+([._-][a-z0-9]+)*$`)

// Service defines the CMS.
type Service interface {
	// Get returns a public entry, served from cache when possible.
	Get(ctx context.Context, key string) (*Entry, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Upsert creates or replaces the entry under key.
	Upsert(ctx context.Context, adminID uuid.UUID, key string, req UpsertRequest) (*Entry, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo   Repository
	cache  cache.Cache
	logger *zap.Logger
}

func NewService(repo Repository, c cache.Cache, logger *zap.Logger) Service {
	return &service{repo: repo, cache: c, logger: logger}
}

func (s *service) Get(ctx context.Context, key string) (*Entry, error) {
	key, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	var e Entry
	if s.cache.Get(ctx, CacheNamespace, key, &e) {
		return &e, nil
	}
	got, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, CacheNamespace, key, got)
	return got, nil
}

func (s *service) List(ctx context.Context, prefix string) ([]Entry, error) {
	return s.repo.List(ctx, strings.ToLower(strings.TrimSpace(prefix)))
}

func (s *service) Upsert(ctx context.Context, adminID uuid.UUID, key string, req UpsertRequest) (*Entry, error) {
	key, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	value := bytes.TrimSpace(req.Value)
	switch {
	case len(value) == 0 || bytes.Equal(value, []byte("null")):
		return nil, apperr.Invalid("value is required")
	case len(value) > maxValueBytes:
		return nil, apperr.Invalid("value exceeds %d bytes", maxValueBytes)
	case !json.Valid(value):
		return nil, apperr.Invalid("value must be valid JSON")
	}

	e := &Entry{Key: key, Value: database.NewJSONB(json.RawMessage(value)), UpdatedBy: &adminID}
	if err := s.repo.Upsert(ctx, e); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, CacheNamespace)
	s.logger.Info("site content updated", zap.String("key", key), zap.String("admin_id", adminID.String()))
	return e, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	key, err := checkKey(key)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, CacheNamespace)
	return nil
}

func checkKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if len(key) > 100 || !keyPattern.MatchString(key) {
		return "", apperr.Invalid("content key %q must be dotted lowercase words", key)
	}
	return key, nil
}

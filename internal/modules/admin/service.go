package admin

import (
	"context"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
)

// CacheNamespace holds dashboard figures. Entries are never invalidated and
// lag by at most the cache TTL.
const CacheNamespace = "analytics"

// MaxDays bounds the daily order series.
const MaxDays = 365

// Service defines the admin dashboard.
type Service interface {
	Analytics(ctx context.Context) (*Analytics, error)
	// DailyOrders returns per-day order counts and amounts for the last days
	// days, cancelled orders excluded.
	DailyOrders(ctx context.Context, days int) ([]DailyOrders, error)
}

type service struct {
	repo   Repository
	cache  cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, c cache.Cache, logger *zap.Logger) Service {
	return &service{repo: repo, cache: c, logger: logger, now: time.Now}
}

func (s *service) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics
	if s.cache.Get(ctx, CacheNamespace, "summary", &a) {
		return &a, nil
	}
	got, err := s.repo.Analytics(ctx)
	if err != nil {
		return nil, err
	}
	got.AverageRating = math.Round(got.AverageRating*10) / 10
	for currency, v := range got.GMV {
		got.GMV[currency] = math.Round(v*100) / 100
	}
	got.GeneratedAt = s.now().UTC()
	s.cache.Set(ctx, CacheNamespace, "summary", got)
	return got, nil
}

func (s *service) DailyOrders(ctx context.Context, days int) ([]DailyOrders, error) {
	if days < 1 || days > MaxDays {
		return nil, apperr.Invalid("days must be between 1 and %d", MaxDays)
	}
	key := "daily:" + strconv.Itoa(days)
	var list []DailyOrders
	if s.cache.Get(ctx, CacheNamespace, key, &list) {
		return list, nil
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	list, err := s.repo.DailyOrders(ctx, today.AddDate(0, 0, -(days - 1)))
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, CacheNamespace, key, list)
	return list, nil
}

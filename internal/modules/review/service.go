package review

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/order"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// factoriesNamespace caches directory pages, which show ratings.
const factoriesNamespace = "factories"

// Orders loads an order on behalf of a caller, enforcing participation.
type Orders interface {
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*order.Order, error)
}

// Factories resolves the user owning a factory profile.
type Factories interface {
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service defines review logic.
type Service interface {
	// Create records the buyer's review of one of their delivered orders.
	// Each order can be reviewed once.
	Create(ctx context.Context, buyerID, orderID uuid.UUID, req CreateRequest) (*Review, error)
	ForFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) (*Summary, error)
	ListAll(ctx context.Context, f ListFilter) ([]Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	orders    Orders
	factories Factories
	cache     cache.Cache
	notifier  notification.Notifier
	logger    *zap.Logger
}

func NewService(repo Repository, orders Orders, factories Factories, c cache.Cache, notifier notification.Notifier, logger *zap.Logger) Service {
	return &service{repo: repo, orders: orders, factories: factories, cache: c, notifier: notifier, logger: logger}
}

func (s *service) Create(ctx context.Context, buyerID, orderID uuid.UUID, req CreateRequest) (*Review, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, identity.Identity{UserID: buyerID, Role: identity.RoleBuyer}, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusDelivered {
		return nil, apperr.Conflict("only delivered orders can be reviewed")
	}

	rv := &Review{
		ID:          uuid.New(),
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     buyerID,
		FactoryID:   o.FactoryID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, factoriesNamespace)

	owner, err := s.factories.OwnerUserID(ctx, o.FactoryID)
	if err != nil {
		s.logger.Warn("review notification failed", zap.String("factory_id", o.FactoryID.String()), zap.Error(err))
		return rv, nil
	}
	err = s.notifier.Notify(ctx, owner, notification.Message{
		Type:  notification.TypeReview,
		Title: fmt.Sprintf("New %d-star review on order %s", rv.Rating, o.OrderNumber),
		Body:  rv.Comment,
		Link:  "/factory/reviews",
	})
	if err != nil {
		s.logger.Warn("review notification failed", zap.String("user_id", owner.String()), zap.Error(err))
	}
	return rv, nil
}

func (s *service) ForFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) (*Summary, error) {
	sum, err := s.repo.Summarize(ctx, factoryID)
	if err != nil {
		return nil, err
	}
	sum.AverageRating = math.Round(sum.AverageRating*10) / 10
	if sum.Reviews, err = s.repo.List(ctx, ListFilter{FactoryID: &factoryID, Limit: limit, Offset: offset}); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *service) ListAll(ctx context.Context, f ListFilter) ([]Review, error) {
	if f.MaxRating < 0 || f.MaxRating > 5 {
		return nil, apperr.Invalid("max_rating must be between 1 and 5")
	}
	return s.repo.List(ctx, f)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, factoriesNamespace)
	return nil
}

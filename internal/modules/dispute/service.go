package dispute

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/order"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// Orders loads an order on behalf of a caller, enforcing participation.
type Orders interface {
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*order.Order, error)
}

// Factories resolves between factory profiles and their owning users.
type Factories interface {
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service defines dispute handling.
type Service interface {
	// Open raises a dispute on an order the caller takes part in and moves
	// the order to DISPUTED.
	Open(ctx context.Context, actor identity.Identity, orderID uuid.UUID, req OpenRequest) (*Dispute, error)
	UploadEvidence(ctx context.Context, actor identity.Identity, id uuid.UUID, file io.Reader) (*Dispute, error)
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Dispute, error)
	ListOwn(ctx context.Context, actor identity.Identity, status Status, limit, offset int) ([]Dispute, error)

	// ── admin ──
	ListAll(ctx context.Context, status Status, limit, offset int) ([]Dispute, error)
	Resolve(ctx context.Context, adminID, id uuid.UUID, req ResolveRequest) (*Dispute, error)
	// Reject dismisses the dispute and resumes the order.
	Reject(ctx context.Context, adminID, id uuid.UUID, resolution string) (*Dispute, error)
}

type service struct {
	repo      Repository
	orders    Orders
	factories Factories
	uploader  storage.Uploader
	notifier  notification.Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, orders Orders, factories Factories, uploader storage.Uploader, notifier notification.Notifier, logger *zap.Logger) Service {
	return &service{
		repo:      repo,
		orders:    orders,
		factories: factories,
		uploader:  uploader,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *service) Open(ctx context.Context, actor identity.Identity, orderID uuid.UUID, req OpenRequest) (*Dispute, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	req.Description = strings.TrimSpace(req.Description)
	req.EvidenceURL = strings.TrimSpace(req.EvidenceURL)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return nil, apperr.Forbidden("only order participants can open disputes")
	}
	o, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, order.StatusDisputed) {
		return nil, apperr.Conflict("a %s order cannot be disputed", o.Status)
	}

	d := &Dispute{
		ID:          uuid.New(),
		OrderID:     o.ID,
		RaisedBy:    actor.UserID,
		Reason:      req.Reason,
		Description: req.Description,
		EvidenceURL: req.EvidenceURL,
		Status:      StatusOpen,
	}
	if o, err = s.repo.Open(ctx, d); err != nil {
		return nil, err
	}

	msg := notification.Message{
		Type:  notification.TypeDispute,
		Title: fmt.Sprintf("A dispute was opened on order %s", o.OrderNumber),
		Body:  d.Reason,
		Link:  "/disputes/" + d.ID.String(),
	}
	if actor.IsBuyer() {
		s.notifyFactory(ctx, o, msg)
	} else {
		s.notifyUser(ctx, o.BuyerID, msg)
	}
	if err := s.notifier.NotifyAdmins(ctx, msg); err != nil {
		s.logger.Warn("admin notification failed", zap.String("dispute_id", d.ID.String()), zap.Error(err))
	}
	return d, nil
}

func (s *service) UploadEvidence(ctx context.Context, actor identity.Identity, id uuid.UUID, file io.Reader) (*Dispute, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.RaisedBy != actor.UserID {
		return nil, apperr.Forbidden("only the party that raised the dispute can add evidence")
	}
	if d.Status != StatusOpen {
		return nil, apperr.Conflict("dispute is %s", d.Status)
	}
	obj, err := s.uploader.Upload(ctx, "disputes/"+d.ID.String(), storage.KindDocument, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetEvidence(ctx, d.ID, obj.URL); err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	if old := s.uploader.KeyFromURL(d.EvidenceURL); old != "" {
		s.removeObject(ctx, old)
	}
	d.EvidenceURL = obj.URL
	return d, nil
}

func (s *service) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Dispute, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.Get(ctx, actor, d.OrderID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) ListOwn(ctx context.Context, actor identity.Identity, status Status, limit, offset int) ([]Dispute, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	f := ListFilter{Status: status, Limit: limit, Offset: offset}
	switch actor.Role {
	case identity.RoleBuyer:
		f.BuyerID = &actor.UserID
	case identity.RoleFactory:
		factoryID, err := s.factories.ProfileIDForUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		f.FactoryID = &factoryID
	default:
		return nil, apperr.Forbidden("only buyers and factories have disputes")
	}
	return s.repo.List(ctx, f)
}

func (s *service) ListAll(ctx context.Context, status Status, limit, offset int) ([]Dispute, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{Status: status, Limit: limit, Offset: offset})
}

func (s *service) Resolve(ctx context.Context, adminID, id uuid.UUID, req ResolveRequest) (*Dispute, error) {
	req.Outcome = Outcome(strings.ToUpper(strings.TrimSpace(string(req.Outcome))))
	req.Resolution = strings.TrimSpace(req.Resolution)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return s.settle(ctx, adminID, id, StatusResolved, req.Resolution, orderStatusFor[req.Outcome])
}

func (s *service) Reject(ctx context.Context, adminID, id uuid.UUID, resolution string) (*Dispute, error) {
	req := RejectRequest{Resolution: strings.TrimSpace(resolution)}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return s.settle(ctx, adminID, id, StatusRejected, req.Resolution, order.StatusProcessing)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) settle(ctx context.Context, adminID, id uuid.UUID, status Status, resolution string, orderStatus order.OrderStatus) (*Dispute, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, apperr.Conflict("dispute is already %s", d.Status)
	}

	now := s.now().UTC()
	d.Status = status
	d.Resolution = resolution
	d.ResolvedBy = &adminID
	d.ResolvedAt = &now
	o, err := s.repo.Settle(ctx, d, orderStatus)
	if err != nil {
		return nil, err
	}

	msg := notification.Message{
		Type:  notification.TypeDispute,
		Title: fmt.Sprintf("Dispute on order %s was %s", o.OrderNumber, strings.ToLower(string(status))),
		Body:  fmt.Sprintf("%s Order is now %s.", resolution, o.Status),
		Link:  "/disputes/" + d.ID.String(),
		SMS:   true,
	}
	s.notifyUser(ctx, o.BuyerID, msg)
	s.notifyFactory(ctx, o, msg)
	return d, nil
}

func (s *service) notifyUser(ctx context.Context, userID uuid.UUID, msg notification.Message) {
	if err := s.notifier.Notify(ctx, userID, msg); err != nil {
		s.logger.Warn("dispute notification failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *service) notifyFactory(ctx context.Context, o *order.Order, msg notification.Message) {
	owner, err := s.factories.OwnerUserID(ctx, o.FactoryID)
	if err != nil {
		s.logger.Warn("dispute notification failed", zap.String("factory_id", o.FactoryID.String()), zap.Error(err))
		return
	}
	s.notifyUser(ctx, owner, msg)
}

func (s *service) removeObject(ctx context.Context, key string) {
	if err := s.uploader.Remove(ctx, key); err != nil {
		s.logger.Warn("storage cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func checkStatus(st Status) error {
	switch st {
	case "", StatusOpen, StatusResolved, StatusRejected:
		return nil
	}
	return apperr.Invalid("unknown dispute status %q", st)
}

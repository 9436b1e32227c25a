package rfq

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

// Factories resolves between factory profiles and their owning users.
type Factories interface {
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service defines RFQ and quotation logic.
type Service interface {
	// ── buyer ──
	Create(ctx context.Context, buyerID uuid.UUID, req CreateRequest) (*RFQ, error)
	UploadAttachment(ctx context.Context, buyerID, id uuid.UUID, file io.Reader) (*RFQ, error)
	ListOwn(ctx context.Context, buyerID uuid.UUID, status Status, limit, offset int) ([]RFQ, error)
	Close(ctx context.Context, buyerID, id uuid.UUID) (*RFQ, error)
	// Award accepts one quote on an open RFQ and creates the matching order.
	Award(ctx context.Context, buyerID, rfqID, quoteID uuid.UUID) (*AwardResult, error)

	// ── factory ──
	ListOpen(ctx context.Context, category string, limit, offset int) ([]RFQ, error)
	SubmitQuote(ctx context.Context, userID, rfqID uuid.UUID, req QuoteRequest) (*Quote, error)
	ListOwnQuotes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Quote, error)

	// Get applies the viewing rules: the owning buyer, any factory while the
	// RFQ is open or once it has quoted, and admins.
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*RFQ, error)
	// ListQuotes is visible to the owning buyer and admins.
	ListQuotes(ctx context.Context, actor identity.Identity, id uuid.UUID) ([]Quote, error)
	ListAll(ctx context.Context, f ListFilter) ([]RFQ, error)
}

type service struct {
	repo            Repository
	factories       Factories
	uploader        storage.Uploader
	notifier        notification.Notifier
	defaultCurrency string
	logger          *zap.Logger
	now             func() time.Time
}

func NewService(repo Repository, factories Factories, uploader storage.Uploader, notifier notification.Notifier, defaultCurrency string, logger *zap.Logger) Service {
	return &service{
		repo:            repo,
		factories:       factories,
		uploader:        uploader,
		notifier:        notifier,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *service) Create(ctx context.Context, buyerID uuid.UUID, req CreateRequest) (*RFQ, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Deadline != nil && !req.Deadline.After(s.now()) {
		return nil, apperr.Invalid("deadline must be in the future")
	}

	q := &RFQ{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Quantity:    req.Quantity,
		Unit:        strings.TrimSpace(req.Unit),
		TargetPrice: req.TargetPrice,
		Currency:    req.Currency,
		Deadline:    req.Deadline,
		Status:      StatusOpen,
	}
	if q.Unit == "" {
		q.Unit = "piece"
	}
	if q.Currency == "" {
		q.Currency = s.defaultCurrency
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create rfq: %w", err)
	}
	return q, nil
}

func (s *service) UploadAttachment(ctx context.Context, buyerID, id uuid.UUID, file io.Reader) (*RFQ, error) {
	q, err := s.ownedOpen(ctx, buyerID, id)
	if err != nil {
		return nil, err
	}
	obj, err := s.uploader.Upload(ctx, "rfqs/"+q.ID.String(), storage.KindDocument, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAttachment(ctx, q.ID, obj.URL); err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	if q.AttachmentURL != "" {
		s.removeObject(ctx, s.uploader.KeyFromURL(q.AttachmentURL))
	}
	q.AttachmentURL = obj.URL
	return q, nil
}

func (s *service) ListOwn(ctx context.Context, buyerID uuid.UUID, status Status, limit, offset int) ([]RFQ, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{BuyerID: &buyerID, Status: status, Limit: limit, Offset: offset})
}

func (s *service) Close(ctx context.Context, buyerID, id uuid.UUID) (*RFQ, error) {
	q, err := s.ownedOpen(ctx, buyerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, id, StatusOpen, StatusClosed); err != nil {
		return nil, err
	}
	q.Status = StatusClosed
	return q, nil
}

func (s *service) Award(ctx context.Context, buyerID, rfqID, quoteID uuid.UUID) (*AwardResult, error) {
	q, err := s.ownedOpen(ctx, buyerID, rfqID)
	if err != nil {
		return nil, err
	}
	quote, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.RFQID != q.ID {
		return nil, apperr.NotFound("quote")
	}
	if quote.Status != QuotePending {
		return nil, apperr.Conflict("quote is %s", quote.Status)
	}

	rid, qid := q.ID, quote.ID
	o := &order.Order{
		ID:          uuid.New(),
		BuyerID:     q.BuyerID,
		FactoryID:   quote.FactoryID,
		RFQID:       &rid,
		QuoteID:     &qid,
		Quantity:    q.Quantity,
		UnitPrice:   quote.UnitPrice,
		TotalAmount: order.Round2(quote.UnitPrice * float64(q.Quantity)),
		Currency:    q.Currency,
		Status:      order.StatusPending,
	}
	if err := s.repo.Award(ctx, q.ID, quote.ID, o); err != nil {
		return nil, err
	}
	q.Status = StatusAwarded
	quote.Status = QuoteAwarded

	owner, err := s.factories.OwnerUserID(ctx, quote.FactoryID)
	if err == nil {
		err = s.notifier.Notify(ctx, owner, notification.Message{
			Type:  notification.TypeQuote,
			Title: fmt.Sprintf("Your quote for %q was accepted", q.Title),
			Body:  fmt.Sprintf("Order %s has been created", o.OrderNumber),
			Link:  "/orders/" + o.ID.String(),
			SMS:   true,
		})
	}
	if err != nil {
		s.logger.Warn("award notification failed", zap.String("rfq_id", q.ID.String()), zap.Error(err))
	}

	return &AwardResult{RFQ: q, Quote: quote, OrderID: o.ID, Number: o.OrderNumber}, nil
}

func (s *service) ListOpen(ctx context.Context, category string, limit, offset int) ([]RFQ, error) {
	return s.repo.List(ctx, ListFilter{
		Status:   StatusOpen,
		Category: strings.TrimSpace(category),
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *service) SubmitQuote(ctx context.Context, userID, rfqID uuid.UUID, req QuoteRequest) (*Quote, error) {
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	factoryID, err := s.factories.ProfileIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := s.repo.GetByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusOpen {
		return nil, apperr.Conflict("rfq is %s", q.Status)
	}
	if q.Deadline != nil && s.now().After(*q.Deadline) {
		return nil, apperr.Conflict("rfq deadline has passed")
	}

	quote := &Quote{
		ID:           uuid.New(),
		RFQID:        q.ID,
		FactoryID:    factoryID,
		UnitPrice:    req.UnitPrice,
		LeadTimeDays: req.LeadTimeDays,
		Notes:        req.Notes,
		Status:       QuotePending,
	}
	if err := s.repo.CreateQuote(ctx, quote); err != nil {
		return nil, err
	}

	if err := s.notifier.Notify(ctx, q.BuyerID, notification.Message{
		Type:  notification.TypeQuote,
		Title: fmt.Sprintf("New quote on %q", q.Title),
		Body:  fmt.Sprintf("%.2f %s per %s, %d days lead time", quote.UnitPrice, q.Currency, q.Unit, quote.LeadTimeDays),
		Link:  "/rfqs/" + q.ID.String(),
	}); err != nil {
		s.logger.Warn("quote notification failed", zap.String("rfq_id", q.ID.String()), zap.Error(err))
	}
	return quote, nil
}

func (s *service) ListOwnQuotes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Quote, error) {
	factoryID, err := s.factories.ProfileIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListQuotesByFactory(ctx, factoryID, limit, offset)
}

func (s *service) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*RFQ, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case identity.RoleAdmin:
		return q, nil
	case identity.RoleBuyer:
		if q.BuyerID == actor.UserID {
			return q, nil
		}
	case identity.RoleFactory:
		if q.Status == StatusOpen {
			return q, nil
		}
		factoryID, err := s.factories.ProfileIDForUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		quoted, err := s.repo.HasQuoted(ctx, q.ID, factoryID)
		if err != nil {
			return nil, err
		}
		if quoted {
			return q, nil
		}
	}
	return nil, apperr.Forbidden("rfq is not visible to you")
}

func (s *service) ListQuotes(ctx context.Context, actor identity.Identity, id uuid.UUID) ([]Quote, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && q.BuyerID != actor.UserID {
		return nil, apperr.Forbidden("only the rfq owner can see its quotes")
	}
	return s.repo.ListQuotes(ctx, id)
}

func (s *service) ListAll(ctx context.Context, f ListFilter) ([]RFQ, error) {
	if err := checkStatus(f.Status); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// ownedOpen loads an RFQ the buyer owns and checks it is still OPEN.
func (s *service) ownedOpen(ctx context.Context, buyerID, id uuid.UUID) (*RFQ, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.BuyerID != buyerID {
		return nil, apperr.Forbidden("rfq belongs to another buyer")
	}
	if q.Status != StatusOpen {
		return nil, apperr.Conflict("rfq is %s", q.Status)
	}
	return q, nil
}

func (s *service) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.uploader.Remove(ctx, key); err != nil {
		s.logger.Warn("storage cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

func checkStatus(st Status) error {
	switch st {
	case "", StatusOpen, StatusAwarded, StatusClosed:
		return nil
	}
	return apperr.Invalid("unknown rfq status %q", st)
}

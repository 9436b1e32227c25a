package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/product"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// Products loads catalogue entries for direct orders.
type Products interface {
	GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

// Factories resolves between factory profiles and their owning users.
type Factories interface {
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service defines the order management business logic.
type Service interface {
	// PlaceOrder orders an active product directly at its minimum price.
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, req PlaceOrderRequest) (*Order, error)

	// Get returns an order the caller takes part in. Admins see every order.
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Order, error)

	// GetByNumber is Get keyed by the human-readable order number.
	GetByNumber(ctx context.Context, actor identity.Identity, orderNumber string) (*Order, error)

	// ListOwn returns the caller's orders as buyer or as factory.
	ListOwn(ctx context.Context, actor identity.Identity, status OrderStatus, limit, offset int) ([]Order, error)

	// ListAll returns every order matching f.
	ListAll(ctx context.Context, f ListFilter) ([]Order, error)

	// UpdateStatus applies a status change permitted for the caller's role and
	// notifies the other party.
	UpdateStatus(ctx context.Context, actor identity.Identity, id uuid.UUID, req UpdateStatusRequest) (*Order, error)
}

type service struct {
	repo      Repository
	products  Products
	factories Factories
	notifier  notification.Notifier
	logger    *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, products Products, factories Factories, notifier notification.Notifier, logger *zap.Logger) Service {
	return &service{
		repo:      repo,
		products:  products,
		factories: factories,
		notifier:  notifier,
		logger:    logger,
	}
}

// validTransitions defines the allowed status state machine. Moves into and
// out of DISPUTED belong to the dispute workflow.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDisputed},
	StatusShipped:    {StatusDelivered, StatusDisputed},
	StatusDelivered:  {StatusDisputed},
	StatusDisputed:   {StatusProcessing, StatusCancelled},
	StatusCancelled:  {},
}

// Moves each party may make on its own orders.
var (
	factoryTransitions = map[OrderStatus][]OrderStatus{
		StatusPending:    {StatusProcessing},
		StatusProcessing: {StatusShipped},
		StatusShipped:    {StatusDelivered},
	}
	buyerTransitions = map[OrderStatus][]OrderStatus{
		StatusPending: {StatusCancelled},
		StatusShipped: {StatusDelivered},
	}
)

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	return allowed(validTransitions, from, to)
}

func (s *service) PlaceOrder(ctx context.Context, buyerID uuid.UUID, req PlaceOrderRequest) (*Order, error) {
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.Invalid("product is not available")
	}
	if req.Quantity < p.MOQ {
		return nil, apperr.Invalid("quantity must be at least the minimum order quantity of %d", p.MOQ)
	}

	productID := p.ID
	o := &Order{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		FactoryID:       p.FactoryID,
		ProductID:       &productID,
		Quantity:        req.Quantity,
		UnitPrice:       p.MinPrice,
		TotalAmount:     Round2(p.MinPrice * float64(req.Quantity)),
		Currency:        p.Currency,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.notifyFactory(ctx, o, notification.Message{
		Type:  notification.TypeOrder,
		Title: fmt.Sprintf("New order %s for %s", o.OrderNumber, p.Name),
		Body:  fmt.Sprintf("%d × %s", o.Quantity, p.Name),
		Link:  "/orders/" + o.ID.String(),
		SMS:   true,
	})
	return o, nil
}

func (s *service) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.party(ctx, actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) GetByNumber(ctx context.Context, actor identity.Identity, orderNumber string) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
	if err != nil {
		return nil, err
	}
	if _, err := s.party(ctx, actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) ListOwn(ctx context.Context, actor identity.Identity, status OrderStatus, limit, offset int) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("unknown order status %q", status)
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
		return nil, apperr.Forbidden("only buyers and factories have orders")
	}
	return s.repo.List(ctx, f)
}

func (s *service) ListAll(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("unknown order status %q", f.Status)
	}
	return s.repo.List(ctx, f)
}

func (s *service) UpdateStatus(ctx context.Context, actor identity.Identity, id uuid.UUID, req UpdateStatusRequest) (*Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	newStatus := OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !newStatus.Valid() {
		return nil, apperr.Invalid("unknown order status %q", req.Status)
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.party(ctx, actor, o)
	if err != nil {
		return nil, err
	}

	if newStatus == StatusDisputed || o.Status == StatusDisputed {
		return nil, apperr.Conflict("disputed orders change only through dispute resolution")
	}
	if !CanTransition(o.Status, newStatus) {
		return nil, apperr.Conflict("cannot transition order from %s to %s", o.Status, newStatus)
	}
	switch p {
	case partyFactory:
		if !allowed(factoryTransitions, o.Status, newStatus) {
			return nil, apperr.Forbidden("factory cannot move order from %s to %s", o.Status, newStatus)
		}
	case partyBuyer:
		if !allowed(buyerTransitions, o.Status, newStatus) {
			return nil, apperr.Forbidden("buyer cannot move order from %s to %s", o.Status, newStatus)
		}
	}

	if tn := strings.TrimSpace(req.TrackingNumber); tn != "" {
		if newStatus != StatusShipped {
			return nil, apperr.Invalid("tracking_number can only be set when shipping")
		}
		o.TrackingNumber = tn
	}
	if err := s.repo.UpdateStatus(ctx, o, newStatus); err != nil {
		return nil, err
	}

	msg := statusMessage(o)
	switch p {
	case partyFactory:
		s.notifyBuyer(ctx, o, msg)
	case partyBuyer:
		s.notifyFactory(ctx, o, msg)
	default:
		s.notifyBuyer(ctx, o, msg)
		s.notifyFactory(ctx, o, msg)
	}
	return o, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

type party int

const (
	partyAdmin party = iota
	partyBuyer
	partyFactory
)

// party reports the caller's side of o, or forbids non-participants.
func (s *service) party(ctx context.Context, actor identity.Identity, o *Order) (party, error) {
	switch actor.Role {
	case identity.RoleAdmin:
		return partyAdmin, nil
	case identity.RoleBuyer:
		if o.BuyerID == actor.UserID {
			return partyBuyer, nil
		}
	case identity.RoleFactory:
		factoryID, err := s.factories.ProfileIDForUser(ctx, actor.UserID)
		if err != nil {
			return 0, err
		}
		if o.FactoryID == factoryID {
			return partyFactory, nil
		}
	}
	return 0, apperr.Forbidden("not a participant of this order")
}

func allowed(table map[OrderStatus][]OrderStatus, from, to OrderStatus) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

func statusMessage(o *Order) notification.Message {
	msg := notification.Message{
		Type:  notification.TypeOrder,
		Title: fmt.Sprintf("Order %s is now %s", o.OrderNumber, o.Status),
		Link:  "/orders/" + o.ID.String(),
	}
	if o.Status == StatusShipped {
		msg.SMS = true
		if o.TrackingNumber != "" {
			msg.Body = "Tracking number: " + o.TrackingNumber
		}
	}
	return msg
}

func (s *service) notifyBuyer(ctx context.Context, o *Order, msg notification.Message) {
	if err := s.notifier.Notify(ctx, o.BuyerID, msg); err != nil {
		s.logger.Warn("order notification failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func (s *service) notifyFactory(ctx context.Context, o *Order, msg notification.Message) {
	owner, err := s.factories.OwnerUserID(ctx, o.FactoryID)
	if err == nil {
		err = s.notifier.Notify(ctx, owner, msg)
	}
	if err != nil {
		s.logger.Warn("order notification failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

// NewNumber returns a human-readable order number: JSR-YYYYMMDD-XXXX.
func NewNumber(t time.Time) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := uuid.New()
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return fmt.Sprintf("JSR-%s-%s", t.UTC().Format("20060102"), suffix)
}

// Round2 rounds a money amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

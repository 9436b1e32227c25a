package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

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

// Factories resolves the user owning a factory profile.
type Factories interface {
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service defines payment business logic.
type Service interface {
	// Initiate starts a payment for an order the buyer placed. Repeating a
	// request with the same idempotency key returns the original payment.
	Initiate(ctx context.Context, actor identity.Identity, orderID uuid.UUID, req InitiateRequest) (*Payment, error)
	Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Payment, error)
	ListByOrder(ctx context.Context, actor identity.Identity, orderID uuid.UUID) ([]Payment, error)
	// UploadProof attaches a bank transfer receipt and marks the payment
	// PROCESSING until an admin confirms it.
	UploadProof(ctx context.Context, actor identity.Identity, id uuid.UUID, file io.Reader) (*Payment, error)
	// Verify polls the provider for the current status of a payment.
	Verify(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Payment, error)
	HandleWebhook(ctx context.Context, payload WebhookPayload) (*Payment, error)

	// ── admin ──
	List(ctx context.Context, f ListFilter) ([]Payment, error)
	Confirm(ctx context.Context, id uuid.UUID) (*Payment, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*Payment, error)
	Refund(ctx context.Context, id uuid.UUID) (*Payment, error)
}

type service struct {
	repo      Repository
	orders    Orders
	factories Factories
	gateways  GatewayRegistry
	uploader  storage.Uploader
	notifier  notification.Notifier
	logger    *zap.Logger
}

func NewService(repo Repository, orders Orders, factories Factories, gateways GatewayRegistry, uploader storage.Uploader, notifier notification.Notifier, logger *zap.Logger) Service {
	return &service{
		repo:      repo,
		orders:    orders,
		factories: factories,
		gateways:  gateways,
		uploader:  uploader,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *service) Initiate(ctx context.Context, actor identity.Identity, orderID uuid.UUID, req InitiateRequest) (*Payment, error) {
	req.Provider = strings.ToUpper(strings.TrimSpace(req.Provider))
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !actor.IsBuyer() {
		return nil, apperr.Forbidden("only the buyer can pay for an order")
	}

	// Idempotency: return the existing payment if the key was already used.
	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			if existing.OrderID != orderID || existing.PayerID != actor.UserID {
				return nil, apperr.Conflict("idempotency key already used for another payment")
			}
			return existing, nil
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	o, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != actor.UserID {
		return nil, apperr.Forbidden("only the buyer can pay for an order")
	}
	if o.Status == order.StatusCancelled {
		return nil, apperr.Conflict("cancelled orders cannot be paid")
	}
	p := &Payment{
		ID:       uuid.New(),
		OrderID:  o.ID,
		PayerID:  actor.UserID,
		Provider: Provider(req.Provider),
		Status:   TxPending,
		Currency: o.Currency,
	}
	if req.IdempotencyKey != "" {
		p.IdempotencyKey = &req.IdempotencyKey
	}
	if p.Provider == ProviderBankTransfer {
		// Buyers quote this reference on their transfer.
		p.ProviderRef = "BT-" + o.OrderNumber + "-" + strings.ToUpper(p.ID.String()[:4])
	}

	// Persist as PENDING before any gateway call so no charge goes unrecorded.
	// The balance is checked under the order lock taken by Create.
	err = s.repo.Create(ctx, p, func(committed float64) error {
		outstanding := order.Round2(o.TotalAmount - committed)
		if outstanding <= 0 {
			return apperr.Conflict("order %s is already paid", o.OrderNumber)
		}
		p.Amount = outstanding
		if req.Amount != nil {
			amount := order.Round2(*req.Amount)
			if amount > outstanding {
				return apperr.Invalid("amount %.2f exceeds the outstanding %.2f", amount, outstanding)
			}
			p.Amount = amount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Provider == ProviderBankTransfer {
		return p, nil
	}

	gw, ok := s.gateways[p.Provider]
	if !ok {
		s.fail(ctx, p, "NO_GATEWAY", "no gateway registered for provider "+string(p.Provider))
		return nil, fmt.Errorf("no gateway registered for provider %s", p.Provider)
	}
	resp, err := gw.Initiate(ctx, p, req.CardToken)
	if err != nil {
		s.fail(ctx, p, "GATEWAY_ERROR", err.Error())
		return nil, fmt.Errorf("gateway initiation failed: %w", err)
	}
	if err := s.repo.UpdateProviderRef(ctx, p.ID, resp.ProviderRef, resp.ProviderStatus); err != nil {
		return nil, err
	}
	p.ProviderRef = resp.ProviderRef
	if err := s.apply(ctx, p, NormaliseStatus(p.Provider, resp.ProviderStatus), resp.ProviderStatus); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.Get(ctx, actor, p.OrderID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ListByOrder(ctx context.Context, actor identity.Identity, orderID uuid.UUID) ([]Payment, error) {
	if _, err := s.orders.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *service) UploadProof(ctx context.Context, actor identity.Identity, id uuid.UUID, file io.Reader) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PayerID != actor.UserID {
		return nil, apperr.Forbidden("only the payer can upload a proof of payment")
	}
	if p.Provider != ProviderBankTransfer {
		return nil, apperr.Invalid("proof of payment applies to bank transfers only")
	}
	if p.Status.Terminal() {
		return nil, apperr.Conflict("payment is already %s", p.Status)
	}

	obj, err := s.uploader.Upload(ctx, "payments/"+p.ID.String(), storage.KindDocument, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetProof(ctx, p.ID, obj.URL); err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	if old := s.uploader.KeyFromURL(p.ProofURL); old != "" {
		s.removeObject(ctx, old)
	}
	p.ProofURL = obj.URL
	p.Status = TxProcessing

	err = s.notifier.NotifyAdmins(ctx, notification.Message{
		Type:  notification.TypePayment,
		Title: "Bank transfer proof awaiting confirmation",
		Body:  fmt.Sprintf("%.2f %s, reference %s", p.Amount, p.Currency, p.ProviderRef),
		Link:  "/admin/payments/" + p.ID.String(),
	})
	if err != nil {
		s.logger.Warn("admin notification failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
	}
	return p, nil
}

func (s *service) Verify(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Payment, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() || p.Provider == ProviderBankTransfer {
		return p, nil
	}
	gw, ok := s.gateways[p.Provider]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for provider %s", p.Provider)
	}

	resp, err := gw.Verify(ctx, p.ProviderRef)
	if err != nil {
		if rerr := s.repo.IncrementRetry(ctx, p.ID, err.Error()); rerr != nil {
			s.logger.Warn("record retry failed", zap.String("payment_id", p.ID.String()), zap.Error(rerr))
		}
		return nil, fmt.Errorf("gateway verification failed: %w", err)
	}
	if err := s.apply(ctx, p, NormaliseStatus(p.Provider, resp.ProviderStatus), resp.ProviderStatus); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) HandleWebhook(ctx context.Context, payload WebhookPayload) (*Payment, error) {
	p, err := s.repo.GetByProviderRef(ctx, payload.Provider, payload.ExternalRef)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RecordWebhook(ctx, p.ID, payload.RawPayload); err != nil {
		s.logger.Warn("record webhook failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
	}

	status := NormaliseStatus(payload.Provider, payload.Status)
	if !webhookApplies(p.Status, status) {
		s.logger.Info("webhook ignored for payment state",
			zap.String("payment_id", p.ID.String()), zap.String("status", string(p.Status)), zap.String("provider_status", payload.Status))
		return p, nil
	}
	if err := s.apply(ctx, p, status, payload.Status); err != nil {
		return nil, err
	}
	return p, nil
}

// webhookApplies reports whether a provider event may move a payment from
// current to next. Refunds apply only to COMPLETED payments.
func webhookApplies(current, next TxStatus) bool {
	if next == TxRefunded {
		return current == TxCompleted
	}
	return !current.Terminal()
}

func (s *service) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	return s.repo.List(ctx, f)
}

func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.manual(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, TxCompleted, "RECEIVED"); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Payment, error) {
	req := RejectRequest{Reason: strings.TrimSpace(reason)}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	p, err := s.manual(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, p, TxFailed, "RETURNED", req.Reason); err != nil {
		return nil, err
	}
	s.notifyPayer(ctx, p, fmt.Sprintf("Payment %s was rejected", p.ProviderRef), req.Reason)
	return p, nil
}

func (s *service) Refund(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != TxCompleted {
		return nil, apperr.Conflict("only COMPLETED payments can be refunded (current status: %s)", p.Status)
	}

	providerStatus := "REFUNDED"
	// Bank transfers are refunded by hand.
	if p.Provider != ProviderBankTransfer {
		gw, ok := s.gateways[p.Provider]
		if !ok {
			return nil, fmt.Errorf("no gateway registered for provider %s", p.Provider)
		}
		resp, err := gw.Refund(ctx, p.ProviderRef, p.Amount)
		if err != nil {
			return nil, fmt.Errorf("gateway refund failed: %w", err)
		}
		providerStatus = resp.ProviderStatus
	}
	if err := s.repo.UpdateStatus(ctx, p, TxRefunded, providerStatus, ""); err != nil {
		return nil, err
	}
	s.notifyPayer(ctx, p, fmt.Sprintf("Refund of %.2f %s issued", p.Amount, p.Currency), "")
	return p, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// apply records a status reported by a provider and announces completion.
func (s *service) apply(ctx context.Context, p *Payment, status TxStatus, providerStatus string) error {
	if status == p.Status {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, p, status, providerStatus, ""); err != nil {
		return err
	}
	switch status {
	case TxCompleted:
		s.notifyPayer(ctx, p, fmt.Sprintf("Payment of %.2f %s received", p.Amount, p.Currency), "")
		owner, err := s.factories.OwnerUserID(ctx, s.factoryOf(ctx, p))
		if err != nil {
			s.logger.Warn("payment notification failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
			return nil
		}
		s.notify(ctx, owner, notification.Message{
			Type:  notification.TypePayment,
			Title: fmt.Sprintf("Buyer paid %.2f %s", p.Amount, p.Currency),
			Link:  "/orders/" + p.OrderID.String(),
			SMS:   true,
		})
	case TxFailed:
		s.notifyPayer(ctx, p, "Payment failed", p.LastError)
	}
	return nil
}

// factoryOf resolves the factory profile paid by p, or uuid.Nil.
func (s *service) factoryOf(ctx context.Context, p *Payment) uuid.UUID {
	o, err := s.orders.Get(ctx, identity.Identity{UserID: p.PayerID, Role: identity.RoleBuyer}, p.OrderID)
	if err != nil {
		return uuid.Nil
	}
	return o.FactoryID
}

// manual loads a bank transfer that is still awaiting an admin decision.
func (s *service) manual(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Provider != ProviderBankTransfer {
		return nil, apperr.Invalid("only bank transfers are confirmed by hand")
	}
	if p.Status.Terminal() {
		return nil, apperr.Conflict("payment is already %s", p.Status)
	}
	return p, nil
}

func (s *service) fail(ctx context.Context, p *Payment, providerStatus, reason string) {
	if err := s.repo.UpdateStatus(ctx, p, TxFailed, providerStatus, reason); err != nil {
		s.logger.Error("mark payment failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
	}
}

func (s *service) notifyPayer(ctx context.Context, p *Payment, title, body string) {
	s.notify(ctx, p.PayerID, notification.Message{
		Type:  notification.TypePayment,
		Title: title,
		Body:  body,
		Link:  "/orders/" + p.OrderID.String(),
	})
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, msg notification.Message) {
	if err := s.notifier.Notify(ctx, userID, msg); err != nil {
		s.logger.Warn("payment notification failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *service) removeObject(ctx context.Context, key string) {
	if err := s.uploader.Remove(ctx, key); err != nil {
		s.logger.Warn("storage cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

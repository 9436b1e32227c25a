package payment

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/order"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
)

type mockRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*Payment
}

func (m *mockRepo) Create(ctx context.Context, p *Payment, reserve func(committed float64) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := reserve(m.committed(p.OrderID)); err != nil {
		return err
	}
	if p.IdempotencyKey != nil {
		if _, err := m.GetByIdempotencyKey(ctx, *p.IdempotencyKey); err == nil {
			return apperr.Conflict("idempotency key already used")
		}
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}
func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment")
	}
	cp := *p
	return &cp, nil
}
func (m *mockRepo) GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error) {
	for _, p := range m.payments {
		if p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("payment")
}
func (m *mockRepo) GetByProviderRef(ctx context.Context, provider Provider, ref string) (*Payment, error) {
	for _, p := range m.payments {
		if p.Provider == provider && p.ProviderRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("payment")
}
func (m *mockRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	out := []Payment{}
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (m *mockRepo) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	out := []Payment{}
	for _, p := range m.payments {
		if (f.Status == "" || p.Status == f.Status) && (f.Provider == "" || p.Provider == f.Provider) {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (m *mockRepo) committed(orderID uuid.UUID) float64 {
	var sum float64
	for _, p := range m.payments {
		if p.OrderID == orderID && p.Status != TxFailed && p.Status != TxRefunded {
			sum += p.Amount
		}
	}
	return sum
}
func (m *mockRepo) UpdateStatus(ctx context.Context, p *Payment, status TxStatus, providerStatus, lastError string) error {
	stored := m.payments[p.ID]
	if stored.Status != p.Status {
		return apperr.Conflict("payment changed concurrently")
	}
	stored.Status = status
	if providerStatus != "" {
		stored.ProviderStatus = providerStatus
	}
	if lastError != "" {
		stored.LastError = lastError
	}
	*p = *stored
	return nil
}
func (m *mockRepo) UpdateProviderRef(ctx context.Context, id uuid.UUID, ref, providerStatus string) error {
	m.payments[id].ProviderRef = ref
	m.payments[id].ProviderStatus = providerStatus
	return nil
}
func (m *mockRepo) SetProof(ctx context.Context, id uuid.UUID, url string) error {
	m.payments[id].ProofURL = url
	m.payments[id].Status = TxProcessing
	return nil
}
func (m *mockRepo) RecordWebhook(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	m.payments[id].WebhookPayload.Data = payload
	return nil
}
func (m *mockRepo) IncrementRetry(ctx context.Context, id uuid.UUID, lastError string) error {
	m.payments[id].RetryCount++
	m.payments[id].LastError = lastError
	return nil
}

type mockOrders map[uuid.UUID]*order.Order

func (m mockOrders) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*order.Order, error) {
	o, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("order")
	}
	if !actor.IsAdmin() && o.BuyerID != actor.UserID {
		return nil, apperr.Forbidden("not a participant of this order")
	}
	cp := *o
	return &cp, nil
}

type staticOwner uuid.UUID

func (s staticOwner) OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error) {
	return uuid.UUID(s), nil
}

type recordingNotifier struct {
	to     []uuid.UUID
	admins int
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, msg notification.Message) error {
	n.to = append(n.to, userID)
	return nil
}
func (n *recordingNotifier) NotifyAdmins(ctx context.Context, msg notification.Message) error {
	n.admins++
	return nil
}

type fixture struct {
	svc      Service
	repo     *mockRepo
	orders   mockOrders
	notifier *recordingNotifier
	buyer    identity.Identity
	ownerID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		repo:     &mockRepo{payments: map[uuid.UUID]*Payment{}},
		orders:   mockOrders{},
		notifier: &recordingNotifier{},
		buyer:    identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer},
		ownerID:  uuid.New(),
	}
	logger := zaptest.NewLogger(t)
	uploader := storage.NewUploader(storage.NewMemory(), "https://cdn.test", 1<<20, logger)
	gateways := GatewayRegistry{ProviderCard: NewCardSandboxGateway("test-key", "https://sandbox.test", logger)}
	f.svc = NewService(f.repo, f.orders, staticOwner(f.ownerID), gateways, uploader, f.notifier, logger)
	return f
}

func (f *fixture) order(status order.OrderStatus, total float64) uuid.UUID {
	o := &order.Order{
		ID: uuid.New(), OrderNumber: "JSR-20260101-PAY1", BuyerID: f.buyer.UserID, FactoryID: uuid.New(),
		Status: status, TotalAmount: total, Currency: "SAR",
	}
	f.orders[o.ID] = o
	return o.ID
}

func amount(v float64) *float64 { return &v }

func TestBankTransferFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.order(order.StatusProcessing, 1500)

	p, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "bank_transfer"})
	require.NoError(t, err)
	require.Equal(t, TxPending, p.Status)
	require.Equal(t, 1500.0, p.Amount)
	require.Equal(t, "SAR", p.Currency)
	require.True(t, strings.HasPrefix(p.ProviderRef, "BT-JSR-20260101-PAY1-"))

	_, err = f.svc.UploadProof(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}, p.ID, strings.NewReader("%PDF-1.4\n"))
	require.ErrorIs(t, err, apperr.ErrForbidden)

	p, err = f.svc.UploadProof(ctx, f.buyer, p.ID, strings.NewReader("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	require.NoError(t, err)
	require.Equal(t, TxProcessing, p.Status)
	require.True(t, strings.HasPrefix(p.ProofURL, "https://cdn.test/payments/"+p.ID.String()))
	require.Equal(t, 1, f.notifier.admins)

	p, err = f.svc.Confirm(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, TxCompleted, p.Status)
	require.ElementsMatch(t, []uuid.UUID{f.buyer.UserID, f.ownerID}, f.notifier.to)

	_, err = f.svc.Confirm(ctx, p.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "BANK_TRANSFER"})
	require.ErrorIs(t, err, apperr.ErrConflict, "order is fully paid")

	p, err = f.svc.Refund(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, TxRefunded, p.Status)
}

func TestInitiateAmountRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.order(order.StatusPending, 100)

	_, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "BANK_TRANSFER", Amount: amount(100.01)})
	require.ErrorIs(t, err, apperr.ErrInvalid)

	p, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "BANK_TRANSFER", Amount: amount(40)})
	require.NoError(t, err)
	require.Equal(t, 40.0, p.Amount)

	p, err = f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "BANK_TRANSFER"})
	require.NoError(t, err)
	require.Equal(t, 60.0, p.Amount, "defaults to the outstanding balance")

	_, err = f.svc.Initiate(ctx, f.buyer, f.order(order.StatusCancelled, 100), InitiateRequest{Provider: "BANK_TRANSFER"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CASH"})
	require.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = f.svc.Initiate(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}, f.order(order.StatusPending, 10), InitiateRequest{Provider: "CARD"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestConcurrentInitiateCannotOverpay(t *testing.T) {
	f := newFixture(t)
	orderID := f.order(order.StatusProcessing, 400)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Initiate(context.Background(), f.buyer, orderID, InitiateRequest{Provider: "BANK_TRANSFER"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperr.ErrConflict)
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 400.0, f.repo.committed(orderID))
}

func TestInitiateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.order(order.StatusPending, 250)
	req := InitiateRequest{Provider: "CARD", CardToken: "tok_visa", IdempotencyKey: "checkout-42"}

	first, err := f.svc.Initiate(ctx, f.buyer, orderID, req)
	require.NoError(t, err)
	again, err := f.svc.Initiate(ctx, f.buyer, orderID, req)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Len(t, f.repo.payments, 1)

	_, err = f.svc.Initiate(ctx, f.buyer, f.order(order.StatusPending, 10), req)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCardFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.order(order.StatusProcessing, 80)

	p, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CARD", CardToken: "tok_visa"})
	require.NoError(t, err)
	require.Equal(t, TxProcessing, p.Status)
	require.True(t, strings.HasPrefix(p.ProviderRef, "CARD-"))

	p, err = f.svc.Verify(ctx, f.buyer, p.ID)
	require.NoError(t, err)
	require.Equal(t, TxCompleted, p.Status)
	require.Equal(t, "CAPTURED", p.ProviderStatus)

	p, err = f.svc.Refund(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, TxRefunded, p.Status)
	_, err = f.svc.Refund(ctx, p.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCardFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.order(order.StatusProcessing, 80)

	p, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CARD", CardToken: SandboxTokenDeclined})
	require.NoError(t, err)
	require.Equal(t, TxFailed, p.Status)

	_, err = f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CARD", CardToken: SandboxTokenError})
	require.Error(t, err)
	failed, err := f.svc.List(ctx, ListFilter{Status: TxFailed})
	require.NoError(t, err)
	require.Len(t, failed, 2, "failed attempts do not count towards the balance")

	_, err = f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CARD", CardToken: "tok_visa"})
	require.NoError(t, err)
}

func TestWebhookSettlesCardPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Initiate(ctx, f.buyer, f.order(order.StatusShipped, 20), InitiateRequest{Provider: "CARD", CardToken: "tok_visa"})
	require.NoError(t, err)

	raw := json.RawMessage(`{"reference":"` + p.ProviderRef + `","status":"captured"}`)
	got, err := f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: p.ProviderRef, Status: "captured", RawPayload: raw})
	require.NoError(t, err)
	require.Equal(t, TxCompleted, got.Status)
	require.JSONEq(t, string(raw), string(f.repo.payments[p.ID].WebhookPayload.Data))

	got, err = f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: p.ProviderRef, Status: "DECLINED"})
	require.NoError(t, err)
	require.Equal(t, TxCompleted, got.Status, "settled payments ignore late updates")

	_, err = f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: "CARD-unknown", Status: "CAPTURED"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWebhookRefundRequiresCompletedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.order(order.StatusProcessing, 90)

	declined, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CARD", CardToken: SandboxTokenDeclined})
	require.NoError(t, err)
	require.Equal(t, TxFailed, declined.Status)
	got, err := f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: declined.ProviderRef, Status: "REFUNDED"})
	require.NoError(t, err)
	require.Equal(t, TxFailed, got.Status)
	require.Equal(t, TxFailed, f.repo.payments[declined.ID].Status)

	open, err := f.svc.Initiate(ctx, f.buyer, orderID, InitiateRequest{Provider: "CARD", CardToken: "tok_visa"})
	require.NoError(t, err)
	require.Equal(t, TxProcessing, open.Status)
	got, err = f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: open.ProviderRef, Status: "REFUNDED"})
	require.NoError(t, err)
	require.Equal(t, TxProcessing, got.Status)

	f.repo.payments[open.ID].Status = TxPending
	got, err = f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: open.ProviderRef, Status: "REFUNDED"})
	require.NoError(t, err)
	require.Equal(t, TxPending, got.Status)

	f.repo.payments[open.ID].Status = TxCompleted
	got, err = f.svc.HandleWebhook(ctx, WebhookPayload{Provider: ProviderCard, ExternalRef: open.ProviderRef, Status: "REFUNDED"})
	require.NoError(t, err)
	require.Equal(t, TxRefunded, got.Status)
}

func TestWebhookAppliesTable(t *testing.T) {
	cases := []struct {
		current, next TxStatus
		want          bool
	}{
		{TxPending, TxProcessing, true},
		{TxProcessing, TxCompleted, true},
		{TxPending, TxRefunded, false},
		{TxProcessing, TxRefunded, false},
		{TxFailed, TxRefunded, false},
		{TxRefunded, TxRefunded, false},
		{TxCompleted, TxRefunded, true},
		{TxCompleted, TxFailed, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, webhookApplies(c.current, c.next), "%s -> %s", c.current, c.next)
	}
}

func TestRejectBankTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Initiate(ctx, f.buyer, f.order(order.StatusProcessing, 20), InitiateRequest{Provider: "BANK_TRANSFER"})
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, p.ID, " ")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	p, err = f.svc.Reject(ctx, p.ID, "No transfer received")
	require.NoError(t, err)
	require.Equal(t, TxFailed, p.Status)
	require.Equal(t, "No transfer received", p.LastError)
}

func TestNormaliseStatus(t *testing.T) {
	require.Equal(t, TxCompleted, NormaliseStatus(ProviderCard, "captured"))
	require.Equal(t, TxFailed, NormaliseStatus(ProviderCard, "DECLINED"))
	require.Equal(t, TxProcessing, NormaliseStatus(ProviderCard, "AUTHORIZED"))
	require.Equal(t, TxRefunded, NormaliseStatus(ProviderCard, "REFUNDED"))
	require.Equal(t, TxCompleted, NormaliseStatus(ProviderBankTransfer, "RECEIVED"))
}

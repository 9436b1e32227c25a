package dispute

import (
	"context"
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

// mockRepo keeps disputes and the orders they touch in memory.
type mockRepo struct {
	disputes map[uuid.UUID]*Dispute
	orders   map[uuid.UUID]*order.Order
}

func (m *mockRepo) Open(ctx context.Context, d *Dispute) (*order.Order, error) {
	o := m.orders[d.OrderID]
	for _, existing := range m.disputes {
		if existing.OrderID == d.OrderID && existing.Status == StatusOpen {
			return nil, apperr.Conflict("order already has an open dispute")
		}
	}
	o.Status = order.StatusDisputed
	d.OrderNumber = o.OrderNumber
	cp := *d
	m.disputes[d.ID] = &cp
	oc := *o
	return &oc, nil
}
func (m *mockRepo) Settle(ctx context.Context, d *Dispute, orderStatus order.OrderStatus) (*order.Order, error) {
	o := m.orders[d.OrderID]
	o.Status = orderStatus
	cp := *d
	m.disputes[d.ID] = &cp
	oc := *o
	return &oc, nil
}
func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	d, ok := m.disputes[id]
	if !ok {
		return nil, apperr.NotFound("dispute")
	}
	cp := *d
	return &cp, nil
}
func (m *mockRepo) List(ctx context.Context, f ListFilter) ([]Dispute, error) {
	out := []Dispute{}
	for _, d := range m.disputes {
		o := m.orders[d.OrderID]
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		if f.FactoryID != nil && o.FactoryID != *f.FactoryID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}
func (m *mockRepo) SetEvidence(ctx context.Context, id uuid.UUID, url string) error {
	m.disputes[id].EvidenceURL = url
	return nil
}

type mockOrders struct {
	repo      *mockRepo
	factories mockFactories
}

func (m mockOrders) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*order.Order, error) {
	o, ok := m.repo.orders[id]
	if !ok {
		return nil, apperr.NotFound("order")
	}
	switch {
	case actor.IsAdmin(),
		actor.IsBuyer() && o.BuyerID == actor.UserID,
		actor.IsFactory() && actor.UserID == m.factories.ownerID && o.FactoryID == m.factories.profileID:
		cp := *o
		return &cp, nil
	}
	return nil, apperr.Forbidden("not a participant of this order")
}

type mockFactories struct{ profileID, ownerID uuid.UUID }

func (m mockFactories) ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if userID != m.ownerID {
		return uuid.Nil, apperr.NotFound("factory profile")
	}
	return m.profileID, nil
}
func (m mockFactories) OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error) {
	return m.ownerID, nil
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
	notifier *recordingNotifier
	order    *order.Order
	buyer    identity.Identity
	factory  identity.Identity
	adminID  uuid.UUID
}

func newFixture(t *testing.T, status order.OrderStatus) *fixture {
	fs := mockFactories{profileID: uuid.New(), ownerID: uuid.New()}
	o := &order.Order{ID: uuid.New(), OrderNumber: "JSR-20260101-ABCD", BuyerID: uuid.New(), FactoryID: fs.profileID, Status: status}
	f := &fixture{
		repo:     &mockRepo{disputes: map[uuid.UUID]*Dispute{}, orders: map[uuid.UUID]*order.Order{o.ID: o}},
		notifier: &recordingNotifier{},
		order:    o,
		buyer:    identity.Identity{UserID: o.BuyerID, Role: identity.RoleBuyer},
		factory:  identity.Identity{UserID: fs.ownerID, Role: identity.RoleFactory},
		adminID:  uuid.New(),
	}
	logger := zaptest.NewLogger(t)
	uploader := storage.NewUploader(storage.NewMemory(), "https://cdn.test", 1<<20, logger)
	f.svc = NewService(f.repo, mockOrders{repo: f.repo, factories: fs}, fs, uploader, f.notifier, logger)
	return f
}

func TestOpenDisputesOrder(t *testing.T) {
	f := newFixture(t, order.StatusShipped)

	d, err := f.svc.Open(context.Background(), f.buyer, f.order.ID, OpenRequest{Reason: "Goods damaged"})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, d.Status)
	require.Equal(t, order.StatusDisputed, f.repo.orders[f.order.ID].Status)
	require.Equal(t, []uuid.UUID{f.factory.UserID}, f.notifier.to)
	require.Equal(t, 1, f.notifier.admins)

	_, err = f.svc.Open(context.Background(), f.factory, f.order.ID, OpenRequest{Reason: "Buyer refuses delivery"})
	require.ErrorIs(t, err, apperr.ErrConflict, "already disputed")
}

func TestOpenRequiresDisputableStatus(t *testing.T) {
	for _, st := range []order.OrderStatus{order.StatusPending, order.StatusCancelled} {
		f := newFixture(t, st)
		_, err := f.svc.Open(context.Background(), f.buyer, f.order.ID, OpenRequest{Reason: "late"})
		require.ErrorIs(t, err, apperr.ErrConflict, st)
	}

	f := newFixture(t, order.StatusProcessing)
	_, err := f.svc.Open(context.Background(), identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}, f.order.ID, OpenRequest{Reason: "late"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Open(context.Background(), f.buyer, f.order.ID, OpenRequest{})
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestResolveOutcomes(t *testing.T) {
	cases := map[Outcome]order.OrderStatus{
		OutcomeCancelOrder: order.StatusCancelled,
		OutcomeResumeOrder: order.StatusProcessing,
	}
	for outcome, want := range cases {
		t.Run(string(outcome), func(t *testing.T) {
			f := newFixture(t, order.StatusDelivered)
			d, err := f.svc.Open(context.Background(), f.buyer, f.order.ID, OpenRequest{Reason: "wrong colour"})
			require.NoError(t, err)
			f.notifier.to = nil

			d, err = f.svc.Resolve(context.Background(), f.adminID, d.ID, ResolveRequest{Outcome: outcome, Resolution: "agreed"})
			require.NoError(t, err)
			require.Equal(t, StatusResolved, d.Status)
			require.Equal(t, f.adminID, *d.ResolvedBy)
			require.NotNil(t, d.ResolvedAt)
			require.Equal(t, want, f.repo.orders[f.order.ID].Status)
			require.ElementsMatch(t, []uuid.UUID{f.buyer.UserID, f.factory.UserID}, f.notifier.to)

			_, err = f.svc.Reject(context.Background(), f.adminID, d.ID, "too late")
			require.ErrorIs(t, err, apperr.ErrConflict)
		})
	}
}

func TestRejectResumesOrder(t *testing.T) {
	f := newFixture(t, order.StatusProcessing)
	d, err := f.svc.Open(context.Background(), f.factory, f.order.ID, OpenRequest{Reason: "buyer unreachable"})
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), f.adminID, d.ID, "")
	require.ErrorIs(t, err, apperr.ErrInvalid, "resolution note is required")

	d, err = f.svc.Reject(context.Background(), f.adminID, d.ID, "no evidence")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, d.Status)
	require.Equal(t, order.StatusProcessing, f.repo.orders[f.order.ID].Status)
}

func TestListOwnByParty(t *testing.T) {
	f := newFixture(t, order.StatusShipped)
	_, err := f.svc.Open(context.Background(), f.buyer, f.order.ID, OpenRequest{Reason: "late"})
	require.NoError(t, err)

	list, err := f.svc.ListOwn(context.Background(), f.factory, StatusOpen, 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = f.svc.ListOwn(context.Background(), identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}, "", 20, 0)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = f.svc.ListAll(context.Background(), "CLOSED", 20, 0)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

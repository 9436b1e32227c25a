package routing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/rfq"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

type mockRepo struct {
	rules       map[uuid.UUID]Rule
	candidates  []Candidate
	invitations []Invitation
}

func (m *mockRepo) CreateRule(ctx context.Context, rule *Rule) error {
	m.rules[rule.ID] = *rule
	return nil
}
func (m *mockRepo) GetRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	rule, ok := m.rules[id]
	if !ok {
		return nil, apperr.NotFound("routing rule")
	}
	return &rule, nil
}
func (m *mockRepo) ListRules(ctx context.Context, activeOnly bool) ([]Rule, error) {
	out := []Rule{}
	for _, rule := range m.rules {
		if !activeOnly || rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}
func (m *mockRepo) UpdateRule(ctx context.Context, rule *Rule) error {
	m.rules[rule.ID] = *rule
	return nil
}
func (m *mockRepo) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.rules[id]; !ok {
		return apperr.NotFound("routing rule")
	}
	delete(m.rules, id)
	return nil
}
func (m *mockRepo) Candidates(ctx context.Context, category string) ([]Candidate, error) {
	return append([]Candidate(nil), m.candidates...), nil
}
func (m *mockRepo) Invite(ctx context.Context, inv *Invitation) (bool, error) {
	for _, existing := range m.invitations {
		if existing.RFQID == inv.RFQID && existing.FactoryID == inv.FactoryID {
			return false, nil
		}
	}
	m.invitations = append(m.invitations, *inv)
	return true, nil
}
func (m *mockRepo) ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]Invitation, error) {
	out := []Invitation{}
	for _, inv := range m.invitations {
		if inv.RFQID == rfqID {
			out = append(out, inv)
		}
	}
	return out, nil
}
func (m *mockRepo) ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Invitation, error) {
	out := []Invitation{}
	for _, inv := range m.invitations {
		if inv.FactoryID == factoryID {
			out = append(out, inv)
		}
	}
	return out, nil
}

type mockRFQs map[uuid.UUID]*rfq.RFQ

func (m mockRFQs) GetByID(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error) {
	q, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("rfq")
	}
	return q, nil
}

// mockFactories maps profile ids to owner user ids.
type mockFactories map[uuid.UUID]uuid.UUID

func (m mockFactories) ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	for profile, owner := range m {
		if owner == userID {
			return profile, nil
		}
	}
	return uuid.Nil, apperr.NotFound("factory profile")
}
func (m mockFactories) OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error) {
	owner, ok := m[profileID]
	if !ok {
		return uuid.Nil, apperr.NotFound("factory profile")
	}
	return owner, nil
}

type recordingNotifier struct{ to []uuid.UUID }

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, msg notification.Message) error {
	n.to = append(n.to, userID)
	return nil
}
func (n *recordingNotifier) NotifyAdmins(ctx context.Context, msg notification.Message) error {
	return nil
}

type fixture struct {
	svc       Service
	repo      *mockRepo
	rfqs      mockRFQs
	factories mockFactories
	notifier  *recordingNotifier
	buyer     identity.Identity
	rfq       *rfq.RFQ
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		repo:      &mockRepo{rules: map[uuid.UUID]Rule{}},
		rfqs:      mockRFQs{},
		factories: mockFactories{},
		notifier:  &recordingNotifier{},
		buyer:     identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer},
	}
	f.rfq = &rfq.RFQ{ID: uuid.New(), BuyerID: f.buyer.UserID, Title: "Cotton tote bags", Category: "Packaging",
		Quantity: 5000, Unit: "piece", Status: rfq.StatusOpen}
	f.rfqs[f.rfq.ID] = f.rfq
	f.svc = NewService(f.repo, f.rfqs, f.factories, f.notifier, zaptest.NewLogger(t))
	return f
}

func (f *fixture) addCandidate(name string, products int, rating float64, open int) Candidate {
	c := Candidate{FactoryID: uuid.New(), OwnerUserID: uuid.New(), FactoryName: name,
		CategoryProducts: products, AverageRating: rating, OpenOrders: open}
	f.factories[c.FactoryID] = c.OwnerUserID
	f.repo.candidates = append(f.repo.candidates, c)
	return c
}

func TestScoreCandidate(t *testing.T) {
	c := Candidate{FactoryID: uuid.New(), CategoryProducts: 3, AverageRating: 4.5, OpenOrders: 2}
	score, reason, targeted := scoreCandidate(c, nil)
	require.Equal(t, 100+45+80.0, score)
	require.Contains(t, reason, "3 active products in category")
	require.False(t, targeted)

	busy := Candidate{OpenOrders: 15}
	score, _, _ = scoreCandidate(busy, nil)
	require.Zero(t, score)

	rules := []Rule{
		{Name: "partner", RuleType: RuleTypeFactoryPriority, Priority: 50, IsActive: true, TargetFactoryID: &c.FactoryID},
		{Name: "top rated", RuleType: RuleTypeMinRating, IsActive: true,
			Conditions: database.NewJSONB(json.RawMessage(`{"min_rating":4}`))},
		{Name: "light load", RuleType: RuleTypeWorkload, IsActive: true,
			Conditions: database.NewJSONB(json.RawMessage(`{"max_open_orders":1}`))},
		{Name: "off", RuleType: RuleTypeMinRating, IsActive: false,
			Conditions: database.NewJSONB(json.RawMessage(`{"min_rating":0}`))},
	}
	score, reason, targeted = scoreCandidate(c, rules)
	require.Equal(t, 225+150+25.0, score)
	require.True(t, targeted)
	require.Contains(t, reason, "rule 'partner' bonus +150")
	require.NotContains(t, reason, "light load")
}

func TestRouteInvitesBestMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	best := f.addCandidate("Best", 4, 5, 0)
	good := f.addCandidate("Good", 1, 3, 4)
	f.addCandidate("Unrelated", 0, 5, 0)
	idle := f.addCandidate("Idle", 1, 3, 0)

	invited, err := f.svc.Route(ctx, f.buyer, f.rfq.ID, RouteRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, invited, 2)
	require.Equal(t, best.FactoryID, invited[0].FactoryID)
	require.Equal(t, idle.FactoryID, invited[1].FactoryID)
	require.Equal(t, []uuid.UUID{best.OwnerUserID, idle.OwnerUserID}, f.notifier.to)

	// a second run skips factories already invited
	invited, err = f.svc.Route(ctx, f.buyer, f.rfq.ID, RouteRequest{})
	require.NoError(t, err)
	require.Len(t, invited, 1)
	require.Equal(t, good.FactoryID, invited[0].FactoryID)

	feed, err := f.svc.ListForFactory(ctx, good.OwnerUserID, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
}

func TestRouteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	partner := f.addCandidate("Partner", 0, 0, 0)
	f.addCandidate("Regular", 2, 4, 0)

	_, err := f.svc.CreateRule(ctx, RuleRequest{Name: "partner", RuleType: "factory_priority", Priority: 10, TargetFactoryID: &partner.FactoryID})
	require.NoError(t, err)

	ranked, err := f.svc.Preview(ctx, f.rfq.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	require.Equal(t, partner.FactoryID, ranked[0].FactoryID)
	require.Equal(t, 290.0, ranked[0].Score)
}

func TestRouteAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addCandidate("Best", 4, 5, 0)

	other := identity.Identity{UserID: uuid.New(), Role: identity.RoleBuyer}
	_, err := f.svc.Route(ctx, other, f.rfq.ID, RouteRequest{})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ListForRFQ(ctx, other, f.rfq.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Route(ctx, f.buyer, f.rfq.ID, RouteRequest{Limit: 50})
	require.ErrorIs(t, err, apperr.ErrInvalid)

	admin := identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}
	invited, err := f.svc.Route(ctx, admin, f.rfq.ID, RouteRequest{})
	require.NoError(t, err)
	require.Len(t, invited, 1)

	f.rfq.Status = rfq.StatusAwarded
	_, err = f.svc.Route(ctx, f.buyer, f.rfq.ID, RouteRequest{})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestManualInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addCandidate("Anyone", 0, 0, 0)

	inv, err := f.svc.Invite(ctx, f.rfq.ID, InviteRequest{FactoryID: c.FactoryID, Reason: "buyer asked for them"})
	require.NoError(t, err)
	require.True(t, inv.Manual)
	require.Equal(t, "Manual invitation: buyer asked for them", inv.Reason)
	require.Equal(t, []uuid.UUID{c.OwnerUserID}, f.notifier.to)

	_, err = f.svc.Invite(ctx, f.rfq.ID, InviteRequest{FactoryID: c.FactoryID, Reason: "again"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.Invite(ctx, f.rfq.ID, InviteRequest{FactoryID: uuid.New(), Reason: "unknown"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Invite(ctx, f.rfq.ID, InviteRequest{FactoryID: c.FactoryID})
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestRuleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := []RuleRequest{
		{Name: "x", RuleType: "GEO"},
		{Name: "x", RuleType: RuleTypeFactoryPriority},
		{Name: "x", RuleType: RuleTypeMinRating, Conditions: json.RawMessage(`{"min_rating":7}`)},
		{Name: "x", RuleType: RuleTypeWorkload},
		{Name: "x", RuleType: RuleTypeWorkload, Conditions: json.RawMessage(`{"max_open_orders":"ten"}`)},
		{RuleType: RuleTypeWorkload, Conditions: json.RawMessage(`{"max_open_orders":3}`)},
	}
	for _, req := range bad {
		_, err := f.svc.CreateRule(ctx, req)
		require.ErrorIs(t, err, apperr.ErrInvalid, req)
	}

	rule, err := f.svc.CreateRule(ctx, RuleRequest{Name: "light", RuleType: RuleTypeWorkload, Conditions: json.RawMessage(`{"max_open_orders":3}`)})
	require.NoError(t, err)
	require.Equal(t, 100, rule.Priority)
	require.True(t, rule.IsActive)

	off := false
	rule, err = f.svc.UpdateRule(ctx, rule.ID, RuleRequest{Name: "light", RuleType: RuleTypeWorkload, IsActive: &off,
		Conditions: json.RawMessage(`{"max_open_orders":5}`)})
	require.NoError(t, err)
	require.False(t, rule.IsActive)

	require.NoError(t, f.svc.DeleteRule(ctx, rule.ID))
	require.ErrorIs(t, f.svc.DeleteRule(ctx, rule.ID), apperr.ErrNotFound)
}

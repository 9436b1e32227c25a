package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/rfq"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
	"github.com/jisr-market/jisr-backend/internal/platform/validate"
)

// DefaultInvites is how many factories Route invites when no limit is given.
const DefaultInvites = 5

// RFQs loads the RFQ being routed.
type RFQs interface {
	GetByID(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error)
}

// Factories resolves between factory profiles and their owning users.
type Factories interface {
	ProfileIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	OwnerUserID(ctx context.Context, profileID uuid.UUID) (uuid.UUID, error)
}

// Service routes open RFQs to the factories best placed to quote them.
type Service interface {
	// Route scores verified factories against an open RFQ and invites the
	// best ones not invited before. Only the posting buyer and admins may
	// route an RFQ.
	Route(ctx context.Context, actor identity.Identity, rfqID uuid.UUID, req RouteRequest) ([]Invitation, error)
	// Preview returns the ranked candidates without inviting anyone.
	Preview(ctx context.Context, rfqID uuid.UUID) ([]Candidate, error)
	// Invite adds a factory to an RFQ by hand, bypassing scoring.
	Invite(ctx context.Context, rfqID uuid.UUID, req InviteRequest) (*Invitation, error)
	ListForRFQ(ctx context.Context, actor identity.Identity, rfqID uuid.UUID) ([]Invitation, error)
	// ListForFactory is the calling factory's feed of open RFQs it was invited to.
	ListForFactory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Invitation, error)

	// Rules management
	CreateRule(ctx context.Context, req RuleRequest) (*Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, req RuleRequest) (*Rule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	rfqs      RFQs
	factories Factories
	notifier  notification.Notifier
	logger    *zap.Logger
}

func NewService(repo Repository, rfqs RFQs, factories Factories, notifier notification.Notifier, logger *zap.Logger) Service {
	return &service{repo: repo, rfqs: rfqs, factories: factories, notifier: notifier, logger: logger}
}

// ── Routing ───────────────────────────────────────────────────────────────────

// Route works in three stages:
//  1. Load verified factories with their catalogue, rating and workload
//  2. Score each candidate against the active rules
//  3. Invite the highest scoring candidates, skipping earlier invitations
func (s *service) Route(ctx context.Context, actor identity.Identity, rfqID uuid.UUID, req RouteRequest) ([]Invitation, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultInvites
	}
	q, err := s.openRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && q.BuyerID != actor.UserID {
		return nil, apperr.Forbidden("only the buyer who posted the RFQ can route it")
	}

	ranked, err := s.rank(ctx, q)
	if err != nil {
		return nil, err
	}

	invited := []Invitation{}
	for _, c := range ranked {
		if len(invited) == limit {
			break
		}
		inv := &Invitation{
			ID:          uuid.New(),
			RFQID:       q.ID,
			RFQTitle:    q.Title,
			RFQStatus:   string(q.Status),
			FactoryID:   c.FactoryID,
			FactoryName: c.FactoryName,
			Score:       c.Score,
			Reason:      c.Reason,
		}
		ok, err := s.repo.Invite(ctx, inv)
		if err != nil {
			return nil, fmt.Errorf("store invitation: %w", err)
		}
		if !ok {
			continue
		}
		invited = append(invited, *inv)
		s.notifyInvited(ctx, c.OwnerUserID, q)
	}

	s.logger.Info("rfq routed",
		zap.String("rfq_id", q.ID.String()),
		zap.Int("candidates", len(ranked)),
		zap.Int("invited", len(invited)),
	)
	return invited, nil
}

func (s *service) Preview(ctx context.Context, rfqID uuid.UUID) ([]Candidate, error) {
	q, err := s.rfqs.GetByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	return s.rank(ctx, q)
}

func (s *service) Invite(ctx context.Context, rfqID uuid.UUID, req InviteRequest) (*Invitation, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	q, err := s.openRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	owner, err := s.factories.OwnerUserID(ctx, req.FactoryID)
	if err != nil {
		return nil, err
	}
	inv := &Invitation{
		ID:        uuid.New(),
		RFQID:     q.ID,
		RFQTitle:  q.Title,
		RFQStatus: string(q.Status),
		FactoryID: req.FactoryID,
		Reason:    "Manual invitation: " + req.Reason,
		Manual:    true,
	}
	ok, err := s.repo.Invite(ctx, inv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("factory was already invited to this RFQ")
	}
	s.notifyInvited(ctx, owner, q)
	return inv, nil
}

func (s *service) ListForRFQ(ctx context.Context, actor identity.Identity, rfqID uuid.UUID) ([]Invitation, error) {
	q, err := s.rfqs.GetByID(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && q.BuyerID != actor.UserID {
		return nil, apperr.Forbidden("only the buyer who posted the RFQ can see its invitations")
	}
	return s.repo.ListByRFQ(ctx, q.ID)
}

func (s *service) ListForFactory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Invitation, error) {
	factoryID, err := s.factories.ProfileIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByFactory(ctx, factoryID, limit, offset)
}

// rank scores every candidate for q and orders them best first: highest
// score, then fewest open orders, then name. Factories without products in
// the RFQ's category are dropped unless a rule targets them.
func (s *service) rank(ctx context.Context, q *rfq.RFQ) ([]Candidate, error) {
	candidates, err := s.repo.Candidates(ctx, q.Category)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	rules, err := s.repo.ListRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load routing rules: %w", err)
	}

	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		var targeted bool
		c.Score, c.Reason, targeted = scoreCandidate(c, rules)
		if q.Category != "" && c.CategoryProducts == 0 && !targeted {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.OpenOrders != b.OpenOrders {
			return a.OpenOrders < b.OpenOrders
		}
		return a.FactoryName < b.FactoryName
	})
	return ranked, nil
}

// scoreCandidate computes a composite score for a factory:
//   - Catalogue match: +100 when it lists active products in the category
//   - Reputation:      +10 per average review star
//   - Workload:        +100 with no open orders, less 10 per open order (min 0)
//   - Rules:           FACTORY_PRIORITY adds 200 minus the rule priority,
//     MIN_RATING and WORKLOAD add 25 when their condition holds
func scoreCandidate(c Candidate, rules []Rule) (float64, string, bool) {
	var (
		score    float64
		reasons  []string
		targeted bool
	)

	if c.CategoryProducts > 0 {
		score += 100
		reasons = append(reasons, fmt.Sprintf("%d active products in category", c.CategoryProducts))
	}

	if c.AverageRating > 0 {
		score += c.AverageRating * 10
		reasons = append(reasons, fmt.Sprintf("rated %.1f", c.AverageRating))
	}

	load := 100.0 - float64(c.OpenOrders)*10.0
	if load < 0 {
		load = 0
	}
	score += load
	reasons = append(reasons, fmt.Sprintf("%d open orders (load score %.0f)", c.OpenOrders, load))

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		conds, _ := conditions(rule)
		switch rule.RuleType {
		case RuleTypeFactoryPriority:
			if rule.TargetFactoryID != nil && *rule.TargetFactoryID == c.FactoryID {
				bonus := float64(200 - rule.Priority)
				if bonus < 0 {
					bonus = 0
				}
				score += bonus
				targeted = true
				reasons = append(reasons, fmt.Sprintf("rule '%s' bonus +%.0f", rule.Name, bonus))
			}
		case RuleTypeMinRating:
			if threshold, ok := conds["min_rating"]; ok && c.AverageRating >= threshold {
				score += 25
				reasons = append(reasons, fmt.Sprintf("rule '%s': rating at least %.1f", rule.Name, threshold))
			}
		case RuleTypeWorkload:
			if threshold, ok := conds["max_open_orders"]; ok && float64(c.OpenOrders) <= threshold {
				score += 25
				reasons = append(reasons, fmt.Sprintf("rule '%s': within %.0f open orders", rule.Name, threshold))
			}
		}
	}
	return score, strings.Join(reasons, "; "), targeted
}

// ── Rules ─────────────────────────────────────────────────────────────────────

func (s *service) CreateRule(ctx context.Context, req RuleRequest) (*Rule, error) {
	rule := &Rule{ID: uuid.New(), IsActive: true}
	if err := applyRule(rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.logger.Info("routing rule created", zap.String("rule_id", rule.ID.String()), zap.String("type", string(rule.RuleType)))
	return rule, nil
}

func (s *service) ListRules(ctx context.Context) ([]Rule, error) {
	return s.repo.ListRules(ctx, false)
}

func (s *service) UpdateRule(ctx context.Context, id uuid.UUID, req RuleRequest) (*Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRule(rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteRule(ctx, id)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) openRFQ(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error) {
	q, err := s.rfqs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status != rfq.StatusOpen {
		return nil, apperr.Conflict("rfq is %s", q.Status)
	}
	return q, nil
}

func (s *service) notifyInvited(ctx context.Context, owner uuid.UUID, q *rfq.RFQ) {
	err := s.notifier.Notify(ctx, owner, notification.Message{
		Type:  notification.TypeRFQ,
		Title: fmt.Sprintf("You are invited to quote %q", q.Title),
		Body:  fmt.Sprintf("%d %s requested", q.Quantity, q.Unit),
		Link:  "/rfqs/" + q.ID.String(),
	})
	if err != nil {
		s.logger.Warn("invitation notification failed", zap.String("rfq_id", q.ID.String()), zap.Error(err))
	}
}

func applyRule(rule *Rule, req RuleRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.RuleType = RuleType(strings.ToUpper(string(req.RuleType)))
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !req.RuleType.Valid() {
		return apperr.Invalid("unknown rule_type %q", req.RuleType)
	}
	raw := req.Conditions
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}
	rule.Name = req.Name
	rule.Description = strings.TrimSpace(req.Description)
	rule.RuleType = req.RuleType
	rule.Priority = req.Priority
	if rule.Priority == 0 {
		rule.Priority = 100
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.Conditions = database.NewJSONB(raw)
	rule.TargetFactoryID = req.TargetFactoryID

	conds, err := conditions(*rule)
	if err != nil {
		return apperr.Invalid("conditions must be an object of numbers")
	}
	switch rule.RuleType {
	case RuleTypeFactoryPriority:
		if rule.TargetFactoryID == nil {
			return apperr.Invalid("target_factory_id is required for %s rules", rule.RuleType)
		}
	case RuleTypeMinRating:
		if v, ok := conds["min_rating"]; !ok || v < 0 || v > 5 {
			return apperr.Invalid("conditions.min_rating must be between 0 and 5")
		}
	case RuleTypeWorkload:
		if v, ok := conds["max_open_orders"]; !ok || v < 0 {
			return apperr.Invalid("conditions.max_open_orders must be zero or more")
		}
	}
	return nil
}

func conditions(rule Rule) (map[string]float64, error) {
	conds := map[string]float64{}
	if len(rule.Conditions.Data) == 0 {
		return conds, nil
	}
	err := json.Unmarshal(rule.Conditions.Data, &conds)
	return conds, err
}

package routing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for routing rules and RFQ invitations.
type Repository interface {
	// ── rules ──
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id uuid.UUID) (*Rule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]Rule, error)
	UpdateRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error

	// ── invitations ──
	// Candidates returns verified factories whose owner is not banned, with
	// their active product count in category, rating and open order count.
	Candidates(ctx context.Context, category string) ([]Candidate, error)
	// Invite stores inv unless the factory was already invited to the RFQ,
	// reporting whether a row was written.
	Invite(ctx context.Context, inv *Invitation) (bool, error)
	ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]Invitation, error)
	// ListByFactory returns invitations to RFQs that are still open.
	ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Invitation, error)
}

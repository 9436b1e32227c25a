package routing

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

// ── rules ─────────────────────────────────────────────────────────────────────

const selectRule = `
	SELECT id, name, description, rule_type, priority, is_active, conditions, target_factory_id, created_at, updated_at
	FROM routing_rules`

func (r *postgresRepo) CreateRule(ctx context.Context, rule *Rule) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO routing_rules (id, name, description, rule_type, priority, is_active, conditions, target_factory_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		rule.ID, rule.Name, rule.Description, rule.RuleType, rule.Priority, rule.IsActive, rule.Conditions, rule.TargetFactoryID,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (r *postgresRepo) GetRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	var rule Rule
	if err := r.db.GetContext(ctx, &rule, selectRule+` WHERE id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "routing rule")
	}
	return &rule, nil
}

func (r *postgresRepo) ListRules(ctx context.Context, activeOnly bool) ([]Rule, error) {
	query := selectRule
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY priority, created_at`

	list := []Rule{}
	err := r.db.SelectContext(ctx, &list, query)
	return list, err
}

func (r *postgresRepo) UpdateRule(ctx context.Context, rule *Rule) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE routing_rules
		SET name = $1, description = $2, rule_type = $3, priority = $4, is_active = $5,
		    conditions = $6, target_factory_id = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`,
		rule.Name, rule.Description, rule.RuleType, rule.Priority, rule.IsActive,
		rule.Conditions, rule.TargetFactoryID, rule.ID,
	).Scan(&rule.UpdatedAt)
	return apperr.FromRow(err, "routing rule")
}

func (r *postgresRepo) DeleteRule(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("routing rule")
	}
	return nil
}

// ── invitations ───────────────────────────────────────────────────────────────

func (r *postgresRepo) Candidates(ctx context.Context, category string) ([]Candidate, error) {
	list := []Candidate{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT fp.id AS factory_id, fp.user_id AS owner_user_id, fp.company_name AS factory_name,
		       (SELECT COUNT(*) FROM products p
		        WHERE p.factory_id = fp.id AND p.is_active AND lower(p.category) = lower($1)) AS category_products,
		       (SELECT COALESCE(AVG(rv.rating), 0)::float8 FROM reviews rv WHERE rv.factory_id = fp.id) AS average_rating,
		       (SELECT COUNT(*) FROM orders o
		        WHERE o.factory_id = fp.id AND o.status IN ('PENDING', 'PROCESSING')) AS open_orders
		FROM factory_profiles fp
		JOIN users u ON u.id = fp.user_id
		WHERE fp.verification_status = 'VERIFIED' AND NOT u.is_banned`, category)
	return list, err
}

func (r *postgresRepo) Invite(ctx context.Context, inv *Invitation) (bool, error) {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO rfq_invitations (id, rfq_id, factory_id, score, reason, manual)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rfq_id, factory_id) DO NOTHING
		RETURNING created_at`,
		inv.ID, inv.RFQID, inv.FactoryID, inv.Score, inv.Reason, inv.Manual,
	).Scan(&inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

const selectInvitation = `
	SELECT i.id, i.rfq_id, q.title AS rfq_title, q.status AS rfq_status, i.factory_id,
	       fp.company_name AS factory_name, i.score, i.reason, i.manual, i.created_at
	FROM rfq_invitations i
	JOIN rfqs q ON q.id = i.rfq_id
	JOIN factory_profiles fp ON fp.id = i.factory_id`

func (r *postgresRepo) ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]Invitation, error) {
	list := []Invitation{}
	err := r.db.SelectContext(ctx, &list, selectInvitation+`
		WHERE i.rfq_id = $1 ORDER BY i.score DESC, i.created_at`, rfqID)
	return list, err
}

func (r *postgresRepo) ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Invitation, error) {
	list := []Invitation{}
	err := r.db.SelectContext(ctx, &list, selectInvitation+`
		WHERE i.factory_id = $1 AND q.status = 'OPEN'
		ORDER BY i.created_at DESC LIMIT $2 OFFSET $3`, factoryID, limit, offset)
	return list, err
}

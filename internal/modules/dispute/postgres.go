package dispute

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/modules/order"
	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectDispute = `
	SELECT d.id, d.order_id, o.order_number, d.raised_by, d.reason, d.description,
	       d.evidence_url, d.status, d.resolution, d.resolved_by, d.resolved_at,
	       d.created_at, d.updated_at
	FROM disputes d
	JOIN orders o ON o.id = d.order_id`

func (r *postgresRepo) Open(ctx context.Context, d *Dispute) (*order.Order, error) {
	var o *order.Order
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		if o, err = order.Lock(ctx, tx, d.OrderID); err != nil {
			return err
		}
		if !order.CanTransition(o.Status, order.StatusDisputed) {
			return apperr.Conflict("a %s order cannot be disputed", o.Status)
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO disputes (id, order_id, raised_by, reason, description, evidence_url, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at`,
			d.ID, d.OrderID, d.RaisedBy, d.Reason, d.Description, d.EvidenceURL, d.Status,
		).Scan(&d.CreatedAt, &d.UpdatedAt)
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("order already has an open dispute")
		}
		if err != nil {
			return err
		}
		d.OrderNumber = o.OrderNumber
		return order.Transition(ctx, tx, o, order.StatusDisputed)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) Settle(ctx context.Context, d *Dispute, orderStatus order.OrderStatus) (*order.Order, error) {
	var o *order.Order
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var current Status
		if err := tx.GetContext(ctx, &current, `SELECT status FROM disputes WHERE id = $1 FOR UPDATE`, d.ID); err != nil {
			return apperr.FromRow(err, "dispute")
		}
		if current != StatusOpen {
			return apperr.Conflict("dispute is already %s", current)
		}

		var err error
		if o, err = order.Lock(ctx, tx, d.OrderID); err != nil {
			return err
		}
		if o.Status != order.StatusDisputed {
			return apperr.Conflict("order is %s, not DISPUTED", o.Status)
		}
		if err := order.Transition(ctx, tx, o, orderStatus); err != nil {
			return err
		}

		return tx.QueryRowxContext(ctx, `
			UPDATE disputes SET status = $1, resolution = $2, resolved_by = $3, resolved_at = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING updated_at`,
			d.Status, d.Resolution, d.ResolvedBy, d.ResolvedAt, d.ID,
		).Scan(&d.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	var d Dispute
	if err := r.db.GetContext(ctx, &d, selectDispute+` WHERE d.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "dispute")
	}
	return &d, nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]Dispute, error) {
	query := selectDispute + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.Status != "" {
		query += fmt.Sprintf(` AND d.status = $%d`, n)
		args = append(args, f.Status)
		n++
	}
	if f.BuyerID != nil {
		query += fmt.Sprintf(` AND o.buyer_id = $%d`, n)
		args = append(args, *f.BuyerID)
		n++
	}
	if f.FactoryID != nil {
		query += fmt.Sprintf(` AND o.factory_id = $%d`, n)
		args = append(args, *f.FactoryID)
		n++
	}
	query += fmt.Sprintf(` ORDER BY d.created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Dispute{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) SetEvidence(ctx context.Context, id uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE disputes SET evidence_url = $1, updated_at = NOW() WHERE id = $2 AND status = 'OPEN'`, url, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("dispute is no longer open")
	}
	return nil
}

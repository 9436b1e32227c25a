package rfq

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

const selectRFQ = `
	SELECT r.id, r.buyer_id, r.title, r.description, r.category, r.quantity, r.unit,
	       r.target_price, r.currency, r.deadline, r.attachment_url, r.status,
	       (SELECT COUNT(*) FROM rfq_responses q WHERE q.rfq_id = r.id) AS quote_count,
	       r.created_at, r.updated_at
	FROM rfqs r`

const selectQuote = `
	SELECT q.id, q.rfq_id, q.factory_id, f.company_name AS factory_name, q.unit_price,
	       q.lead_time_days, q.notes, q.status, q.created_at, q.updated_at
	FROM rfq_responses q
	JOIN factory_profiles f ON f.id = q.factory_id`

func (r *postgresRepo) Create(ctx context.Context, q *RFQ) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO rfqs (id, buyer_id, title, description, category, quantity, unit,
		                  target_price, currency, deadline, attachment_url, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		q.ID, q.BuyerID, q.Title, q.Description, q.Category, q.Quantity, q.Unit,
		q.TargetPrice, q.Currency, q.Deadline, q.AttachmentURL, q.Status,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*RFQ, error) {
	var q RFQ
	if err := r.db.GetContext(ctx, &q, selectRFQ+` WHERE r.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "rfq")
	}
	return &q, nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]RFQ, error) {
	query := selectRFQ + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.BuyerID != nil {
		query += fmt.Sprintf(` AND r.buyer_id = $%d`, n)
		args = append(args, *f.BuyerID)
		n++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND r.status = $%d`, n)
		args = append(args, f.Status)
		n++
	}
	if f.Category != "" {
		query += fmt.Sprintf(` AND r.category ILIKE $%d ESCAPE '\'`, n)
		args = append(args, database.EscapeLike(f.Category))
		n++
	}
	query += fmt.Sprintf(` ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []RFQ{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rfqs SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("rfq is no longer %s", from)
	}
	return nil
}

func (r *postgresRepo) SetAttachment(ctx context.Context, id uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rfqs SET attachment_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("rfq")
	}
	return nil
}

func (r *postgresRepo) CreateQuote(ctx context.Context, q *Quote) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO rfq_responses (id, rfq_id, factory_id, unit_price, lead_time_days, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		q.ID, q.RFQID, q.FactoryID, q.UnitPrice, q.LeadTimeDays, q.Notes, q.Status,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("factory has already quoted this rfq")
	}
	return err
}

func (r *postgresRepo) GetQuote(ctx context.Context, id uuid.UUID) (*Quote, error) {
	var q Quote
	if err := r.db.GetContext(ctx, &q, selectQuote+` WHERE q.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "quote")
	}
	return &q, nil
}

func (r *postgresRepo) ListQuotes(ctx context.Context, rfqID uuid.UUID) ([]Quote, error) {
	list := []Quote{}
	err := r.db.SelectContext(ctx, &list, selectQuote+` WHERE q.rfq_id = $1 ORDER BY q.unit_price ASC, q.created_at`, rfqID)
	return list, err
}

func (r *postgresRepo) ListQuotesByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Quote, error) {
	list := []Quote{}
	err := r.db.SelectContext(ctx, &list,
		selectQuote+` WHERE q.factory_id = $1 ORDER BY q.created_at DESC LIMIT $2 OFFSET $3`,
		factoryID, limit, offset)
	return list, err
}

func (r *postgresRepo) HasQuoted(ctx context.Context, rfqID, factoryID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM rfq_responses WHERE rfq_id = $1 AND factory_id = $2)`, rfqID, factoryID)
	return ok, err
}

func (r *postgresRepo) Award(ctx context.Context, rfqID, quoteID uuid.UUID, o *order.Order) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE rfqs SET status = 'AWARDED', updated_at = NOW() WHERE id = $1 AND status = 'OPEN'`, rfqID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("rfq is no longer open")
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE rfq_responses SET status = 'AWARDED', updated_at = NOW()
			WHERE id = $1 AND rfq_id = $2 AND status = 'PENDING'`, quoteID, rfqID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("quote is no longer pending")
		}

		return order.Insert(ctx, tx, o)
	})
}

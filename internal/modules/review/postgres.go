package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectReview = `
	SELECT rv.id, rv.order_id, o.order_number, rv.buyer_id, u.name AS buyer_name,
	       rv.factory_id, rv.rating, rv.comment, rv.created_at
	FROM reviews rv
	JOIN orders o ON o.id = rv.order_id
	JOIN users u ON u.id = rv.buyer_id`

func (r *postgresRepo) Create(ctx context.Context, rv *Review) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO reviews (id, order_id, buyer_id, factory_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		rv.ID, rv.OrderID, rv.BuyerID, rv.FactoryID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("order has already been reviewed")
	}
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	var rv Review
	if err := r.db.GetContext(ctx, &rv, selectReview+` WHERE rv.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "review")
	}
	return &rv, nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]Review, error) {
	query := selectReview + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.FactoryID != nil {
		query += fmt.Sprintf(` AND rv.factory_id = $%d`, n)
		args = append(args, *f.FactoryID)
		n++
	}
	if f.MaxRating > 0 {
		query += fmt.Sprintf(` AND rv.rating <= $%d`, n)
		args = append(args, f.MaxRating)
		n++
	}
	query += fmt.Sprintf(` ORDER BY rv.created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Review{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) Summarize(ctx context.Context, factoryID uuid.UUID) (*Summary, error) {
	s := Summary{FactoryID: factoryID}
	err := r.db.QueryRowxContext(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM reviews WHERE factory_id = $1`, factoryID,
	).Scan(&s.AverageRating, &s.ReviewCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("review")
	}
	return nil
}

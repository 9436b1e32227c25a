package product

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

const selectProduct = `
	SELECT id, factory_id, name, description, category, min_price, max_price, currency,
	       moq, unit, images, attributes, customization, lead_time, is_active,
	       created_at, updated_at
	FROM products`

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO products (id, factory_id, name, description, category, min_price, max_price,
		                      currency, moq, unit, images, attributes, customization, lead_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`,
		p.ID, p.FactoryID, p.Name, p.Description, p.Category, p.MinPrice, p.MaxPrice,
		p.Currency, p.MOQ, p.Unit, p.Images, p.Attributes, p.Customization, p.LeadTime, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	if err := r.db.GetContext(ctx, &p, selectProduct+` WHERE id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "product")
	}
	return &p, nil
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE products SET
		    name = $1, description = $2, category = $3, min_price = $4, max_price = $5,
		    currency = $6, moq = $7, unit = $8, images = $9, attributes = $10,
		    customization = $11, lead_time = $12, is_active = $13, updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at`,
		p.Name, p.Description, p.Category, p.MinPrice, p.MaxPrice,
		p.Currency, p.MOQ, p.Unit, p.Images, p.Attributes,
		p.Customization, p.LeadTime, p.IsActive, p.ID,
	).Scan(&p.UpdatedAt)
	return apperr.FromRow(err, "product")
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]Product, error) {
	query := selectProduct + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.ActiveOnly {
		query += ` AND is_active`
	}
	if f.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, n, n)
		args = append(args, database.LikeContains(f.Search))
		n++
	}
	if f.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, n)
		args = append(args, f.Category)
		n++
	}
	if f.FactoryID != nil {
		query += fmt.Sprintf(` AND factory_id = $%d`, n)
		args = append(args, *f.FactoryID)
		n++
	}
	// A product matches a price window when its own range overlaps it.
	if f.MinPrice != nil {
		query += fmt.Sprintf(` AND max_price >= $%d`, n)
		args = append(args, *f.MinPrice)
		n++
	}
	if f.MaxPrice != nil {
		query += fmt.Sprintf(` AND min_price <= $%d`, n)
		args = append(args, *f.MaxPrice)
		n++
	}
	switch f.Sort {
	case "price_asc":
		query += ` ORDER BY min_price ASC, id`
	case "price_desc":
		query += ` ORDER BY min_price DESC, id`
	default:
		query += ` ORDER BY created_at DESC, id`
	}
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Product{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectCategory = `
	SELECT c.id, c.slug, c.name, c.description, c.sort_order, c.is_active, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM products p
	        WHERE p.is_active AND (lower(p.category) = lower(c.name) OR lower(p.category) = c.slug)) AS product_count
	FROM categories c`

func (r *postgresRepo) List(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := selectCategory
	if activeOnly {
		query += ` WHERE c.is_active`
	}
	query += ` ORDER BY c.sort_order, c.name`

	list := []Category{}
	err := r.db.SelectContext(ctx, &list, query)
	return list, err
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	if err := r.db.GetContext(ctx, &c, selectCategory+` WHERE c.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "category")
	}
	return &c, nil
}

func (r *postgresRepo) Create(ctx context.Context, c *Category) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO categories (id, slug, name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.Slug, c.Name, c.Description, c.SortOrder, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("category %q already exists", c.Slug)
	}
	return err
}

func (r *postgresRepo) Update(ctx context.Context, c *Category) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE categories
		SET slug = $1, name = $2, description = $3, sort_order = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`,
		c.Slug, c.Name, c.Description, c.SortOrder, c.IsActive, c.ID,
	).Scan(&c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("category %q already exists", c.Slug)
	}
	return apperr.FromRow(err, "category")
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("category")
	}
	return nil
}

package factory

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

const selectProfile = `
	SELECT id, user_id, company_name, description, industry, city, country, phone,
	       website, logo_url, verification_status, rejection_reason, documents,
	       pending_changes, verified_at, created_at, updated_at
	FROM factory_profiles`

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	if err := r.db.GetContext(ctx, &p, selectProfile+` WHERE id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "factory")
	}
	return &p, nil
}

func (r *postgresRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	if err := r.db.GetContext(ctx, &p, selectProfile+` WHERE user_id = $1`, userID); err != nil {
		return nil, apperr.FromRow(err, "factory profile")
	}
	return &p, nil
}

func (r *postgresRepo) Save(ctx context.Context, p *Profile) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE factory_profiles SET
		    company_name = $1, description = $2, industry = $3, city = $4, country = $5,
		    phone = $6, website = $7, logo_url = $8, verification_status = $9,
		    rejection_reason = $10, documents = $11, pending_changes = $12,
		    verified_at = $13, updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at`,
		p.CompanyName, p.Description, p.Industry, p.City, p.Country,
		p.Phone, p.Website, p.LogoURL, p.VerificationStatus,
		p.RejectionReason, p.Documents, p.PendingChanges,
		p.VerifiedAt, p.ID,
	).Scan(&p.UpdatedAt)
	return apperr.FromRow(err, "factory")
}

func (r *postgresRepo) ListByStatus(ctx context.Context, status VerificationStatus) ([]Profile, error) {
	list := []Profile{}
	err := r.db.SelectContext(ctx, &list, selectProfile+` WHERE verification_status = $1 ORDER BY updated_at`, status)
	return list, err
}

func (r *postgresRepo) ListWithPendingChanges(ctx context.Context) ([]Profile, error) {
	list := []Profile{}
	err := r.db.SelectContext(ctx, &list, selectProfile+` WHERE pending_changes IS NOT NULL ORDER BY updated_at`)
	return list, err
}

const selectPublic = `
	SELECT f.id, f.company_name, f.description, f.industry, f.city, f.country, f.phone,
	       f.website, f.logo_url, f.created_at,
	       f.verification_status = 'VERIFIED'     AS verified,
	       COALESCE(rv.avg_rating, 0)::float8     AS average_rating,
	       COALESCE(rv.review_count, 0)           AS review_count,
	       COALESCE(pr.product_count, 0)          AS product_count
	FROM factory_profiles f
	JOIN users u ON u.id = f.user_id AND NOT u.is_banned
	LEFT JOIN (
	    SELECT factory_id, AVG(rating) AS avg_rating, COUNT(*) AS review_count
	    FROM reviews GROUP BY factory_id
	) rv ON rv.factory_id = f.id
	LEFT JOIN (
	    SELECT factory_id, COUNT(*) AS product_count
	    FROM products WHERE is_active GROUP BY factory_id
	) pr ON pr.factory_id = f.id`

func (r *postgresRepo) Directory(ctx context.Context, f DirectoryFilter) ([]Public, error) {
	query := selectPublic + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.Search != "" {
		query += fmt.Sprintf(` AND (f.company_name ILIKE $%d ESCAPE '\' OR f.description ILIKE $%d ESCAPE '\')`, n, n)
		args = append(args, database.LikeContains(f.Search))
		n++
	}
	if f.Industry != "" {
		query += fmt.Sprintf(` AND f.industry ILIKE $%d ESCAPE '\'`, n)
		args = append(args, database.EscapeLike(f.Industry))
		n++
	}
	if f.City != "" {
		query += fmt.Sprintf(` AND f.city ILIKE $%d ESCAPE '\'`, n)
		args = append(args, database.EscapeLike(f.City))
		n++
	}
	if f.VerifiedOnly {
		query += ` AND f.verification_status = 'VERIFIED'`
	}
	if f.Sort == "name" {
		query += ` ORDER BY f.company_name ASC, f.id`
	} else {
		query += ` ORDER BY f.created_at DESC, f.id`
	}
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Public{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) GetPublic(ctx context.Context, id uuid.UUID) (*Public, error) {
	var p Public
	if err := r.db.GetContext(ctx, &p, selectPublic+` WHERE f.id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "factory")
	}
	return &p, nil
}

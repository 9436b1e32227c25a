package buyer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

// Repository defines data access for buyer profiles.
type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, `
		SELECT id, user_id, company_name, country, city, industry, phone, created_at, updated_at
		FROM buyer_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, apperr.FromRow(err, "buyer profile")
	}
	return &p, nil
}

func (r *postgresRepo) Update(ctx context.Context, p *Profile) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE buyer_profiles
		SET company_name = $1, country = $2, city = $3, industry = $4, phone = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`,
		p.CompanyName, p.Country, p.City, p.Industry, p.Phone, p.ID).Scan(&p.UpdatedAt)
	return apperr.FromRow(err, "buyer profile")
}

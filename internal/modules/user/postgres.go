package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const selectUser = `
	SELECT id, email, password_hash, name, phone, role, is_banned, created_at, updated_at
	FROM users`

func (r *postgresRepository) Create(ctx context.Context, u *User, companyName string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO users (id, email, password_hash, name, phone, role)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role,
		).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("email %s is already registered", u.Email)
			}
			return err
		}

		switch u.Role {
		case identity.RoleBuyer:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO buyer_profiles (id, user_id, company_name, phone) VALUES ($1, $2, $3, $4)`,
				uuid.New(), u.ID, companyName, u.Phone)
		case identity.RoleFactory:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO factory_profiles (id, user_id, company_name, phone) VALUES ($1, $2, $3, $4)`,
				uuid.New(), u.ID, companyName, u.Phone)
		}
		return err
	})
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, selectUser+` WHERE id = $1`, id); err != nil {
		return nil, apperr.FromRow(err, "user")
	}
	return &u, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, selectUser+` WHERE email = $1`, strings.ToLower(email)); err != nil {
		return nil, apperr.FromRow(err, "user")
	}
	return &u, nil
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
}

func (r *postgresRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	return r.exec(ctx, `UPDATE users SET is_banned = $1, updated_at = NOW() WHERE id = $2`, banned, id)
}

func (r *postgresRepository) List(ctx context.Context, f ListFilter) ([]User, error) {
	var banned interface{}
	if f.Banned != nil {
		banned = *f.Banned
	}
	users := []User{}
	err := r.db.SelectContext(ctx, &users, selectUser+`
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR email ILIKE $3 ESCAPE '\' OR name ILIKE $3 ESCAPE '\')
		  AND ($4::boolean IS NULL OR is_banned = $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`,
		string(f.Role), f.Search, database.LikeContains(f.Search), banned, f.Limit, f.Offset)
	return users, err
}

func (r *postgresRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

package content

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectEntry = `SELECT key, value, updated_by, updated_at FROM site_content`

func (r *postgresRepo) Get(ctx context.Context, key string) (*Entry, error) {
	var e Entry
	if err := r.db.GetContext(ctx, &e, selectEntry+` WHERE key = $1`, key); err != nil {
		return nil, apperr.FromRow(err, "content")
	}
	return &e, nil
}

func (r *postgresRepo) List(ctx context.Context, prefix string) ([]Entry, error) {
	list := []Entry{}
	err := r.db.SelectContext(ctx, &list, selectEntry+` WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, database.LikePrefix(prefix))
	return list, err
}

func (r *postgresRepo) Upsert(ctx context.Context, e *Entry) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO site_content (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING updated_at`,
		e.Key, e.Value, e.UpdatedBy,
	).Scan(&e.UpdatedAt)
}

func (r *postgresRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM site_content WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("content")
	}
	return nil
}


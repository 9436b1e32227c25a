package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, n *Notification) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Link).Scan(&n.CreatedAt)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Notification, error) {
	list := []Notification{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT id, user_id, type, title, body, link, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		userID, f.UnreadOnly, f.Limit, f.Offset)
	return list, err
}

func (r *postgresRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID)
	return n, err
}

func (r *postgresRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *postgresRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepo) Recipient(ctx context.Context, userID uuid.UUID) (*Recipient, error) {
	var rc Recipient
	err := r.db.GetContext(ctx, &rc, `SELECT id, name, email, phone FROM users WHERE id = $1`, userID)
	if err != nil {
		return nil, apperr.FromRow(err, "user")
	}
	return &rc, nil
}

func (r *postgresRepo) AdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE role = 'ADMIN' AND NOT is_banned`)
	return ids, err
}

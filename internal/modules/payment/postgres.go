package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectPayment = `
	SELECT id, order_id, payer_id, provider, provider_ref, provider_status, status,
	       amount, currency, proof_url, idempotency_key, webhook_received_at,
	       webhook_payload, retry_count, last_error, created_at, updated_at
	FROM payments`

func (r *postgresRepo) Create(ctx context.Context, p *Payment, reserve func(committed float64) error) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked uuid.UUID
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM orders WHERE id=$1 FOR UPDATE`, p.OrderID); err != nil {
			return apperr.FromRow(err, "order")
		}
		var committed float64
		if err := tx.GetContext(ctx, &committed, `
			SELECT COALESCE(SUM(amount), 0)::float8 FROM payments
			WHERE order_id=$1 AND status NOT IN ('FAILED', 'REFUNDED')`, p.OrderID); err != nil {
			return err
		}
		if err := reserve(committed); err != nil {
			return err
		}
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO payments
			  (id, order_id, payer_id, provider, provider_ref, provider_status, status,
			   amount, currency, idempotency_key)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING created_at, updated_at`,
			p.ID, p.OrderID, p.PayerID, p.Provider, p.ProviderRef, p.ProviderStatus, p.Status,
			p.Amount, p.Currency, p.IdempotencyKey,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("idempotency key already used")
		}
		return err
	})
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.get(ctx, selectPayment+` WHERE id=$1`, id)
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error) {
	return r.get(ctx, selectPayment+` WHERE idempotency_key=$1`, key)
}

func (r *postgresRepo) GetByProviderRef(ctx context.Context, provider Provider, ref string) (*Payment, error) {
	return r.get(ctx, selectPayment+` WHERE provider=$1 AND provider_ref=$2`, provider, ref)
}

func (r *postgresRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	list := []Payment{}
	err := r.db.SelectContext(ctx, &list, selectPayment+` WHERE order_id=$1 ORDER BY created_at DESC`, orderID)
	return list, err
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	query := selectPayment + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.Status != "" {
		query += fmt.Sprintf(` AND status=$%d`, n)
		args = append(args, f.Status)
		n++
	}
	if f.Provider != "" {
		query += fmt.Sprintf(` AND provider=$%d`, n)
		args = append(args, f.Provider)
		n++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Payment{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, p *Payment, status TxStatus, providerStatus, lastError string) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE payments
		SET status=$1, provider_status=COALESCE(NULLIF($2,''), provider_status),
		    last_error=COALESCE(NULLIF($3,''), last_error), updated_at=NOW()
		WHERE id=$4 AND status=$5
		RETURNING updated_at`,
		status, providerStatus, lastError, p.ID, p.Status,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Conflict("payment changed concurrently")
	}
	if err != nil {
		return err
	}
	p.Status = status
	if providerStatus != "" {
		p.ProviderStatus = providerStatus
	}
	if lastError != "" {
		p.LastError = lastError
	}
	return nil
}

func (r *postgresRepo) UpdateProviderRef(ctx context.Context, id uuid.UUID, ref, providerStatus string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET provider_ref=$1, provider_status=$2, updated_at=NOW() WHERE id=$3`,
		ref, providerStatus, id)
	return err
}

func (r *postgresRepo) SetProof(ctx context.Context, id uuid.UUID, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET proof_url=$1, status='PROCESSING', updated_at=NOW()
		WHERE id=$2 AND status IN ('PENDING', 'PROCESSING')`, url, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("payment is no longer awaiting proof")
	}
	return nil
}

func (r *postgresRepo) RecordWebhook(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET webhook_received_at=NOW(), webhook_payload=$1, updated_at=NOW() WHERE id=$2`,
		database.NewJSONB(payload), id)
	return err
}

func (r *postgresRepo) IncrementRetry(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET retry_count=retry_count+1, last_error=$1, updated_at=NOW() WHERE id=$2`,
		lastError, id)
	return err
}

func (r *postgresRepo) get(ctx context.Context, query string, args ...interface{}) (*Payment, error) {
	var p Payment
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		return nil, apperr.FromRow(err, "payment")
	}
	return &p, nil
}

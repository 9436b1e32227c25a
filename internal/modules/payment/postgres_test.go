package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestCreateLocksOrderAndReservesBalance(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	p := &Payment{ID: uuid.New(), OrderID: uuid.New(), PayerID: uuid.New(), Provider: ProviderBankTransfer, Status: TxPending, Currency: "SAR"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM orders WHERE id=\$1 FOR UPDATE`).
		WithArgs(p.OrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(p.OrderID.String()))
	mock.ExpectQuery(`status NOT IN \('FAILED', 'REFUNDED'\)`).
		WithArgs(p.OrderID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(120.5))
	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs(p.ID, p.OrderID, p.PayerID, p.Provider, "", "", TxPending, 79.5, "SAR", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	var seen float64
	err := NewPostgresRepository(db).Create(context.Background(), p, func(committed float64) error {
		seen = committed
		p.Amount = 200 - committed
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 120.5, seen)
	require.Equal(t, now, p.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRollsBackWhenBalanceIsExhausted(t *testing.T) {
	db, mock := newMockDB(t)
	p := &Payment{ID: uuid.New(), OrderID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(p.OrderID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(p.OrderID.String()))
	mock.ExpectQuery(`SUM\(amount\)`).WithArgs(p.OrderID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(200.0))
	mock.ExpectRollback()

	err := NewPostgresRepository(db).Create(context.Background(), p, func(committed float64) error {
		return apperr.Conflict("order is already paid")
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateIdempotencyKey(t *testing.T) {
	db, mock := newMockDB(t)
	key := "checkout-1"
	orderID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(orderID.String()))
	mock.ExpectQuery(`SUM\(amount\)`).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0.0))
	mock.ExpectQuery(`INSERT INTO payments`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := NewPostgresRepository(db).Create(context.Background(), &Payment{ID: uuid.New(), OrderID: orderID, IdempotencyKey: &key},
		func(float64) error { return nil })
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusIsConditional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRepository(db)
	p := &Payment{ID: uuid.New(), Status: TxProcessing}
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`UPDATE payments\s+SET status=\$1`).
		WithArgs(TxCompleted, "CAPTURED", "", p.ID, TxProcessing).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	require.NoError(t, repo.UpdateStatus(context.Background(), p, TxCompleted, "CAPTURED", ""))
	require.Equal(t, TxCompleted, p.Status)
	require.Equal(t, "CAPTURED", p.ProviderStatus)

	mock.ExpectQuery(`UPDATE payments\s+SET status=\$1`).
		WithArgs(TxRefunded, "REFUNDED", "", p.ID, TxCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	require.ErrorIs(t, repo.UpdateStatus(context.Background(), p, TxRefunded, "REFUNDED", ""), apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByProviderRefScansNullables(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	id := uuid.New()
	mock.ExpectQuery(`WHERE provider=\$1 AND provider_ref=\$2`).
		WithArgs(ProviderCard, "CARD-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "payer_id", "provider", "provider_ref", "provider_status", "status",
			"amount", "currency", "proof_url", "idempotency_key", "webhook_received_at",
			"webhook_payload", "retry_count", "last_error", "created_at", "updated_at",
		}).AddRow(id.String(), uuid.NewString(), uuid.NewString(), "CARD", "CARD-1", "AUTHORIZED", "PROCESSING",
			"80.00", "SAR", "", nil, nil, nil, 0, "", now, now))

	p, err := NewPostgresRepository(db).GetByProviderRef(context.Background(), ProviderCard, "CARD-1")
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
	require.Equal(t, 80.0, p.Amount)
	require.Nil(t, p.IdempotencyKey)
	require.Nil(t, p.WebhookPayload.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

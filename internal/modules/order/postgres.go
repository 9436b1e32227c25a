package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

const selectOrder = `
	SELECT id, order_number, buyer_id, factory_id, product_id, rfq_id, quote_id, quantity,
	       unit_price, total_amount, currency, status, shipping_address, notes,
	       tracking_number, created_at, updated_at
	FROM orders`

// numberAttempts bounds order number regeneration on collisions.
const numberAttempts = 5

// Insert assigns o a fresh order number and inserts it through q, which may be
// a transaction. Number collisions are retried with ON CONFLICT so a
// surrounding transaction is never aborted by them.
func Insert(ctx context.Context, q sqlx.QueryerContext, o *Order) error {
	for i := 0; i < numberAttempts; i++ {
		o.OrderNumber = NewNumber(time.Now())
		err := q.QueryRowxContext(ctx, `
			INSERT INTO orders
			  (id, order_number, buyer_id, factory_id, product_id, rfq_id, quote_id, quantity,
			   unit_price, total_amount, currency, status, shipping_address, notes, tracking_number)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (order_number) DO NOTHING
			RETURNING created_at, updated_at`,
			o.ID, o.OrderNumber, o.BuyerID, o.FactoryID, o.ProductID, o.RFQID, o.QuoteID, o.Quantity,
			o.UnitPrice, o.TotalAmount, o.Currency, o.Status, o.ShippingAddress, o.Notes, o.TrackingNumber,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	}
	return fmt.Errorf("insert order: no free order number after %d attempts", numberAttempts)
}

// Transition moves o to status through q if o still holds the status it was
// loaded with.
func Transition(ctx context.Context, q sqlx.QueryerContext, o *Order, status OrderStatus) error {
	err := q.QueryRowxContext(ctx, `
		UPDATE orders SET status=$1, tracking_number=$2, updated_at=NOW()
		WHERE id=$3 AND status=$4
		RETURNING updated_at`,
		status, o.TrackingNumber, o.ID, o.Status,
	).Scan(&o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Conflict("order %s changed concurrently", o.OrderNumber)
	}
	if err != nil {
		return err
	}
	o.Status = status
	return nil
}

// Lock loads an order inside a transaction and holds its row lock until the
// transaction ends.
func Lock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Order, error) {
	var o Order
	if err := tx.GetContext(ctx, &o, selectOrder+` WHERE id=$1 FOR UPDATE`, id); err != nil {
		return nil, apperr.FromRow(err, "order")
	}
	return &o, nil
}

func (r *postgresRepo) Create(ctx context.Context, o *Order) error {
	return Insert(ctx, r.db, o)
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, selectOrder+` WHERE id=$1`, id); err != nil {
		return nil, apperr.FromRow(err, "order")
	}
	return &o, nil
}

func (r *postgresRepo) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, selectOrder+` WHERE order_number=$1`, orderNumber); err != nil {
		return nil, apperr.FromRow(err, "order")
	}
	return &o, nil
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	query := selectOrder + ` WHERE 1=1`
	args := []interface{}{}
	n := 1
	if f.BuyerID != nil {
		query += fmt.Sprintf(` AND buyer_id=$%d`, n)
		args = append(args, *f.BuyerID)
		n++
	}
	if f.FactoryID != nil {
		query += fmt.Sprintf(` AND factory_id=$%d`, n)
		args = append(args, *f.FactoryID)
		n++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND status=$%d`, n)
		args = append(args, f.Status)
		n++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, f.Limit, f.Offset)

	list := []Order{}
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, o *Order, status OrderStatus) error {
	return Transition(ctx, r.db, o, status)
}

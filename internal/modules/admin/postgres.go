package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type postgresRepo struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepo{db: db} }

// Grouped counts feeding Analytics, keyed by the map they fill.
var groupedCounts = []struct {
	name  string
	query string
}{
	{"users", `SELECT role AS key, COUNT(*) AS count FROM users GROUP BY role`},
	{"factories", `SELECT verification_status AS key, COUNT(*) AS count FROM factory_profiles GROUP BY verification_status`},
	{"rfqs", `SELECT status AS key, COUNT(*) AS count FROM rfqs GROUP BY status`},
	{"orders", `SELECT status AS key, COUNT(*) AS count FROM orders GROUP BY status`},
	{"payments", `SELECT status AS key, COUNT(*) AS count FROM payments GROUP BY status`},
}

func (r *postgresRepo) Analytics(ctx context.Context) (*Analytics, error) {
	a := &Analytics{GMV: map[string]float64{}}
	targets := map[string]*map[string]int{
		"users":     &a.UsersByRole,
		"factories": &a.FactoriesByStatus,
		"rfqs":      &a.RFQsByStatus,
		"orders":    &a.OrdersByStatus,
		"payments":  &a.PaymentsByStatus,
	}
	for _, g := range groupedCounts {
		var rows []bucket
		if err := r.db.SelectContext(ctx, &rows, g.query); err != nil {
			return nil, fmt.Errorf("count %s: %w", g.name, err)
		}
		m := make(map[string]int, len(rows))
		for _, b := range rows {
			m[b.Key] = b.Count
		}
		*targets[g.name] = m
	}

	err := r.db.QueryRowxContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM users WHERE is_banned),
		  (SELECT COUNT(*) FROM factory_profiles WHERE pending_changes IS NOT NULL),
		  (SELECT COUNT(*) FROM products WHERE is_active),
		  (SELECT COUNT(*) FROM disputes WHERE status = 'OPEN'),
		  (SELECT COUNT(*) FROM reviews),
		  (SELECT COALESCE(AVG(rating), 0)::float8 FROM reviews)`,
	).Scan(&a.BannedUsers, &a.PendingChanges, &a.ActiveProducts, &a.OpenDisputes, &a.Reviews, &a.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("count totals: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT currency, SUM(total_amount)::float8 FROM orders
		WHERE status = 'DELIVERED' GROUP BY currency`)
	if err != nil {
		return nil, fmt.Errorf("sum gmv: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var currency string
		var total float64
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, err
		}
		a.GMV[currency] = total
	}
	return a, rows.Err()
}

func (r *postgresRepo) DailyOrders(ctx context.Context, since time.Time) ([]DailyOrders, error) {
	list := []DailyOrders{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT date_trunc('day', created_at) AS day, COUNT(*) AS orders,
		       COALESCE(SUM(total_amount), 0)::float8 AS amount
		FROM orders
		WHERE created_at >= $1 AND status <> 'CANCELLED'
		GROUP BY 1 ORDER BY 1`, since)
	return list, err
}

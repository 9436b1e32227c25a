package admin

import (
	"context"
	"time"
)

// Repository reads aggregate figures across every domain table.
type Repository interface {
	Analytics(ctx context.Context) (*Analytics, error)
	DailyOrders(ctx context.Context, since time.Time) ([]DailyOrders, error)
}

package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Recipient(ctx context.Context, userID uuid.UUID) (*Recipient, error)
	AdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

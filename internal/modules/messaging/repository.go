package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for conversations and messages.
type Repository interface {
	// GetOrCreate returns the conversation between c.BuyerID and c.FactoryID,
	// inserting c when none exists yet.
	GetOrCreate(ctx context.Context, c *Conversation) (*Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	List(ctx context.Context, f ListFilter) ([]Conversation, error)
	// HasDealings reports whether the factory has an order with the buyer or
	// has quoted on one of their RFQs.
	HasDealings(ctx context.Context, buyerID, factoryID uuid.UUID) (bool, error)

	AddMessage(ctx context.Context, m *Message) error
	// Messages returns messages created strictly after after (zero for all),
	// oldest first.
	Messages(ctx context.Context, conversationID uuid.UUID, after time.Time, limit int) ([]Message, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
}

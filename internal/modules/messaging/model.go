package messaging

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentType classifies a message attachment.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "IMAGE"
	AttachmentFile  AttachmentType = "FILE"
)

// Conversation is the single thread between a buyer and a factory.
type Conversation struct {
	ID            uuid.UUID  `json:"id"                   db:"id"`
	BuyerID       uuid.UUID  `json:"buyer_id"             db:"buyer_id"`
	BuyerName     string     `json:"buyer_name"           db:"buyer_name"`
	FactoryID     uuid.UUID  `json:"factory_id"           db:"factory_id"`
	FactoryName   string     `json:"factory_name"         db:"factory_name"`
	ProductID     *uuid.UUID `json:"product_id,omitempty" db:"product_id"`
	LastMessageAt *time.Time `json:"last_message_at"      db:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"           db:"created_at"`

	// Filled in for listings, relative to the viewer.
	LastMessage string `json:"last_message,omitempty" db:"last_message"`
	UnreadCount int    `json:"unread_count"           db:"unread_count"`
}

// Message is one entry in a conversation: a body, an attachment or both.
type Message struct {
	ID             uuid.UUID      `json:"id"                        db:"id"`
	ConversationID uuid.UUID      `json:"conversation_id"           db:"conversation_id"`
	SenderID       uuid.UUID      `json:"sender_id"                 db:"sender_id"`
	Body           string         `json:"body"                      db:"body"`
	AttachmentURL  string         `json:"attachment_url,omitempty"  db:"attachment_url"`
	AttachmentType AttachmentType `json:"attachment_type,omitempty" db:"attachment_type"`
	ReadAt         *time.Time     `json:"read_at"                   db:"read_at"`
	CreatedAt      time.Time      `json:"created_at"                db:"created_at"`
}

// ListFilter selects the conversations of one side. ViewerID is the user
// whose unread count is computed.
type ListFilter struct {
	BuyerID   *uuid.UUID
	FactoryID *uuid.UUID
	ViewerID  uuid.UUID
	Limit     int
	Offset    int
}

// StartRequest opens (or reopens) a conversation. Buyers name the factory,
// factories name the buyer.
type StartRequest struct {
	FactoryID *uuid.UUID `json:"factory_id"`
	BuyerID   *uuid.UUID `json:"buyer_id"`
	ProductID *uuid.UUID `json:"product_id"`
	Body      string     `json:"body" validate:"max=5000"`
}

type SendRequest struct {
	Body string `json:"body" validate:"max=5000"`
}


package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type groups notifications by the workflow that raised them.
type Type string

const (
	TypeVerification  Type = "VERIFICATION"
	TypeProfileChange Type = "PROFILE_CHANGE"
	TypeRFQ           Type = "RFQ"
	TypeQuote         Type = "QUOTE"
	TypeOrder         Type = "ORDER"
	TypeDispute       Type = "DISPUTE"
	TypeMessage       Type = "MESSAGE"
	TypePayment       Type = "PAYMENT"
	TypeReview        Type = "REVIEW"
)

// Channel is an outbound delivery route besides the in-app inbox.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Notification is one in-app inbox entry.
type Notification struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	UserID    uuid.UUID `json:"user_id"    db:"user_id"`
	Type      Type      `json:"type"       db:"type"`
	Title     string    `json:"title"      db:"title"`
	Body      string    `json:"body"       db:"body"`
	Link      string    `json:"link"       db:"link"`
	IsRead    bool      `json:"is_read"    db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Message is what callers hand to Notify.
type Message struct {
	Type  Type
	Title string
	Body  string
	Link  string
	// SMS additionally texts the recipient. Email is always sent.
	SMS bool
}

// Recipient holds the contact details of a user.
type Recipient struct {
	UserID uuid.UUID `db:"id"`
	Name   string    `db:"name"`
	Email  string    `db:"email"`
	Phone  string    `db:"phone"`
}

// Event is published to Kafka for the notifier worker.
type Event struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Type           Type      `json:"type"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Link           string    `json:"link,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Channels       []Channel `json:"channels"`
	CreatedAt      time.Time `json:"created_at"`
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

type UnreadCount struct {
	Unread int `json:"unread"`
}

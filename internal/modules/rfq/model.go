package rfq

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a request for quotation.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusAwarded Status = "AWARDED"
	StatusClosed  Status = "CLOSED"
)

// QuoteStatus is the state of a factory's response to an RFQ.
type QuoteStatus string

const (
	QuotePending QuoteStatus = "PENDING"
	QuoteAwarded QuoteStatus = "AWARDED"
)

// RFQ is a buyer's request for quotation.
type RFQ struct {
	ID            uuid.UUID  `json:"id"             db:"id"`
	BuyerID       uuid.UUID  `json:"buyer_id"       db:"buyer_id"`
	Title         string     `json:"title"          db:"title"`
	Description   string     `json:"description"    db:"description"`
	Category      string     `json:"category"       db:"category"`
	Quantity      int        `json:"quantity"       db:"quantity"`
	Unit          string     `json:"unit"           db:"unit"`
	TargetPrice   *float64   `json:"target_price"   db:"target_price"`
	Currency      string     `json:"currency"       db:"currency"`
	Deadline      *time.Time `json:"deadline"       db:"deadline"`
	AttachmentURL string     `json:"attachment_url" db:"attachment_url"`
	Status        Status     `json:"status"         db:"status"`
	QuoteCount    int        `json:"quote_count"    db:"quote_count"`
	CreatedAt     time.Time  `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"     db:"updated_at"`
}

// Quote is a factory's response to an RFQ. A factory quotes an RFQ at most once.
type Quote struct {
	ID           uuid.UUID   `json:"id"             db:"id"`
	RFQID        uuid.UUID   `json:"rfq_id"         db:"rfq_id"`
	FactoryID    uuid.UUID   `json:"factory_id"     db:"factory_id"`
	FactoryName  string      `json:"factory_name"   db:"factory_name"`
	UnitPrice    float64     `json:"unit_price"     db:"unit_price"`
	LeadTimeDays int         `json:"lead_time_days" db:"lead_time_days"`
	Notes        string      `json:"notes"          db:"notes"`
	Status       QuoteStatus `json:"status"         db:"status"`
	CreatedAt    time.Time   `json:"created_at"     db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"     db:"updated_at"`
}

// ListFilter narrows RFQ listings.
type ListFilter struct {
	BuyerID  *uuid.UUID `json:"buyer_id"`
	Status   Status     `json:"status"`
	Category string     `json:"category"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

type CreateRequest struct {
	Title       string     `json:"title"        validate:"required,max=200"`
	Description string     `json:"description"  validate:"max=5000"`
	Category    string     `json:"category"     validate:"max=100"`
	Quantity    int        `json:"quantity"     validate:"gte=1"`
	Unit        string     `json:"unit"         validate:"max=30"`
	TargetPrice *float64   `json:"target_price" validate:"omitempty,gte=0"`
	Currency    string     `json:"currency"     validate:"omitempty,len=3"`
	Deadline    *time.Time `json:"deadline"`
}

type QuoteRequest struct {
	UnitPrice    float64 `json:"unit_price"     validate:"gt=0"`
	LeadTimeDays int     `json:"lead_time_days" validate:"gte=1,lte=365"`
	Notes        string  `json:"notes"          validate:"max=2000"`
}

// AwardResult is returned by awarding a quote.
type AwardResult struct {
	RFQ     *RFQ      `json:"rfq"`
	Quote   *Quote    `json:"quote"`
	OrderID uuid.UUID `json:"order_id"`
	Number  string    `json:"order_number"`
}

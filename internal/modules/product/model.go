package product

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

// LeadTime is the production lead time range in days.
type LeadTime struct {
	MinDays int `json:"min_days" validate:"gte=0"`
	MaxDays int `json:"max_days" validate:"gte=0"`
}

// Product is a catalogue listing owned by a factory.
type Product struct {
	ID            uuid.UUID                       `json:"id"            db:"id"`
	FactoryID     uuid.UUID                       `json:"factory_id"    db:"factory_id"`
	Name          string                          `json:"name"          db:"name"`
	Description   string                          `json:"description"   db:"description"`
	Category      string                          `json:"category"      db:"category"`
	MinPrice      float64                         `json:"min_price"     db:"min_price"`
	MaxPrice      float64                         `json:"max_price"     db:"max_price"`
	Currency      string                          `json:"currency"      db:"currency"`
	MOQ           int                             `json:"moq"           db:"moq"`
	Unit          string                          `json:"unit"          db:"unit"`
	Images        database.JSONB[[]string]        `json:"images"        db:"images"`
	Attributes    database.JSONB[json.RawMessage] `json:"attributes"    db:"attributes"`
	Customization database.JSONB[json.RawMessage] `json:"customization" db:"customization"`
	LeadTime      database.JSONB[LeadTime]        `json:"lead_time"     db:"lead_time"`
	IsActive      bool                            `json:"is_active"     db:"is_active"`
	CreatedAt     time.Time                       `json:"created_at"    db:"created_at"`
	UpdatedAt     time.Time                       `json:"updated_at"    db:"updated_at"`
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// ProductRequest creates or fully replaces a product. Attributes and
// Customization accept a JSON object or a string holding one.
type ProductRequest struct {
	Name          string          `json:"name"          validate:"required,max=200"`
	Description   string          `json:"description"   validate:"max=5000"`
	Category      string          `json:"category"      validate:"required,max=100"`
	MinPrice      float64         `json:"min_price"     validate:"gte=0"`
	MaxPrice      float64         `json:"max_price"     validate:"gte=0"`
	Currency      string          `json:"currency"      validate:"omitempty,len=3"`
	MOQ           int             `json:"moq"           validate:"gte=1"`
	Unit          string          `json:"unit"          validate:"max=30"`
	Attributes    json.RawMessage `json:"attributes"`
	Customization json.RawMessage `json:"customization"`
	LeadTime      LeadTime        `json:"lead_time"`
	IsActive      *bool           `json:"is_active"`
}

// ListFilter drives the public catalogue.
type ListFilter struct {
	Search     string     `json:"search"`
	Category   string     `json:"category"`
	FactoryID  *uuid.UUID `json:"factory_id"`
	MinPrice   *float64   `json:"min_price"`
	MaxPrice   *float64   `json:"max_price"`
	Sort       string     `json:"sort"` // newest | price_asc | price_desc
	ActiveOnly bool       `json:"active_only"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

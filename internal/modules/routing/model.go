package routing

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

// RuleType selects how a rule adjusts a candidate's score.
type RuleType string

const (
	RuleTypeFactoryPriority RuleType = "FACTORY_PRIORITY" // bonus for one target factory
	RuleTypeMinRating       RuleType = "MIN_RATING"       // bonus at or above {"min_rating": n}
	RuleTypeWorkload        RuleType = "WORKLOAD"         // bonus at or below {"max_open_orders": n}
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeFactoryPriority, RuleTypeMinRating, RuleTypeWorkload:
		return true
	}
	return false
}

// Rule is an admin-managed adjustment to RFQ routing scores.
type Rule struct {
	ID              uuid.UUID                       `json:"id"                          db:"id"`
	Name            string                          `json:"name"                        db:"name"`
	Description     string                          `json:"description"                 db:"description"`
	RuleType        RuleType                        `json:"rule_type"                   db:"rule_type"`
	Priority        int                             `json:"priority"                    db:"priority"`
	IsActive        bool                            `json:"is_active"                   db:"is_active"`
	Conditions      database.JSONB[json.RawMessage] `json:"conditions"                  db:"conditions"`
	TargetFactoryID *uuid.UUID                      `json:"target_factory_id,omitempty" db:"target_factory_id"`
	CreatedAt       time.Time                       `json:"created_at"                  db:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at"                  db:"updated_at"`
}

// Invitation records that a factory was asked to quote an RFQ.
type Invitation struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	RFQID       uuid.UUID `json:"rfq_id"       db:"rfq_id"`
	RFQTitle    string    `json:"rfq_title"    db:"rfq_title"`
	RFQStatus   string    `json:"rfq_status"   db:"rfq_status"`
	FactoryID   uuid.UUID `json:"factory_id"   db:"factory_id"`
	FactoryName string    `json:"factory_name" db:"factory_name"`
	Score       float64   `json:"score"        db:"score"`
	Reason      string    `json:"reason"       db:"reason"`
	Manual      bool      `json:"manual"       db:"manual"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// Candidate is a verified factory evaluated for an RFQ.
type Candidate struct {
	FactoryID        uuid.UUID `json:"factory_id"        db:"factory_id"`
	OwnerUserID      uuid.UUID `json:"-"                 db:"owner_user_id"`
	FactoryName      string    `json:"factory_name"      db:"factory_name"`
	CategoryProducts int       `json:"category_products" db:"category_products"`
	AverageRating    float64   `json:"average_rating"    db:"average_rating"`
	OpenOrders       int       `json:"open_orders"       db:"open_orders"`
	Score            float64   `json:"score"             db:"-"`
	Reason           string    `json:"reason"            db:"-"`
}

// RouteRequest asks for the best matching factories to be invited.
type RouteRequest struct {
	Limit int `json:"limit" validate:"omitempty,gte=1,lte=20"`
}

// InviteRequest manually invites a factory, bypassing scoring.
type InviteRequest struct {
	FactoryID uuid.UUID `json:"factory_id" validate:"required"`
	Reason    string    `json:"reason"     validate:"required,max=500"`
}

// RuleRequest creates or replaces a rule.
type RuleRequest struct {
	Name            string          `json:"name"              validate:"required,max=200"`
	Description     string          `json:"description"       validate:"max=1000"`
	RuleType        RuleType        `json:"rule_type"         validate:"required"`
	Priority        int             `json:"priority"          validate:"gte=0"`
	IsActive        *bool           `json:"is_active"`
	Conditions      json.RawMessage `json:"conditions"`
	TargetFactoryID *uuid.UUID      `json:"target_factory_id"`
}

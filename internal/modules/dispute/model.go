package dispute

import (
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/modules/order"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
	StatusRejected Status = "REJECTED"
)

// Outcome is the admin's ruling on a resolved dispute.
type Outcome string

const (
	OutcomeCancelOrder Outcome = "CANCEL_ORDER"
	OutcomeResumeOrder Outcome = "RESUME_ORDER"
)

// orderStatusFor maps an outcome onto the status the order returns to.
var orderStatusFor = map[Outcome]order.OrderStatus{
	OutcomeCancelOrder: order.StatusCancelled,
	OutcomeResumeOrder: order.StatusProcessing,
}

// Dispute is a complaint raised by an order participant for admin mediation.
type Dispute struct {
	ID          uuid.UUID  `json:"id"           db:"id"`
	OrderID     uuid.UUID  `json:"order_id"     db:"order_id"`
	OrderNumber string     `json:"order_number" db:"order_number"`
	RaisedBy    uuid.UUID  `json:"raised_by"    db:"raised_by"`
	Reason      string     `json:"reason"       db:"reason"`
	Description string     `json:"description"  db:"description"`
	EvidenceURL string     `json:"evidence_url" db:"evidence_url"`
	Status      Status     `json:"status"       db:"status"`
	Resolution  string     `json:"resolution"   db:"resolution"`
	ResolvedBy  *uuid.UUID `json:"resolved_by"  db:"resolved_by"`
	ResolvedAt  *time.Time `json:"resolved_at"  db:"resolved_at"`
	CreatedAt   time.Time  `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"   db:"updated_at"`
}

// ListFilter narrows dispute listings; party ids match through the order.
type ListFilter struct {
	Status    Status
	BuyerID   *uuid.UUID
	FactoryID *uuid.UUID
	Limit     int
	Offset    int
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

type OpenRequest struct {
	Reason      string `json:"reason"       validate:"required,max=200"`
	Description string `json:"description"  validate:"max=5000"`
	EvidenceURL string `json:"evidence_url" validate:"omitempty,url"`
}

type ResolveRequest struct {
	Outcome    Outcome `json:"outcome"    validate:"required,oneof=CANCEL_ORDER RESUME_ORDER"`
	Resolution string  `json:"resolution" validate:"required,max=2000"`
}

type RejectRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

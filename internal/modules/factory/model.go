package factory

import (
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

// VerificationStatus is the trust-badge state of a factory.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "UNVERIFIED"
	StatusPending    VerificationStatus = "PENDING"
	StatusVerified   VerificationStatus = "VERIFIED"
	StatusRejected   VerificationStatus = "REJECTED"
)

// Document is a verification file stored in object storage.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Details are the editable company fields. A verified factory's edits are
// parked as a Details snapshot until an admin approves them.
type Details struct {
	CompanyName string `json:"company_name" db:"company_name" validate:"required,max=200"`
	Description string `json:"description"  db:"description"  validate:"max=5000"`
	Industry    string `json:"industry"     db:"industry"     validate:"max=100"`
	City        string `json:"city"         db:"city"         validate:"max=100"`
	Country     string `json:"country"      db:"country"      validate:"max=100"`
	Phone       string `json:"phone"        db:"phone"        validate:"max=32"`
	Website     string `json:"website"      db:"website"      validate:"omitempty,url,max=300"`
	LogoURL     string `json:"logo_url"     db:"logo_url"     validate:"omitempty,url,max=500"`
}

// PendingChanges is a Details snapshot awaiting review.
type PendingChanges struct {
	Details
	SubmittedAt time.Time `json:"submitted_at"`
}

// Profile is the full factory record as seen by its owner and admins.
type Profile struct {
	ID     uuid.UUID `json:"id"      db:"id"`
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	Details
	VerificationStatus VerificationStatus              `json:"verification_status" db:"verification_status"`
	RejectionReason    string                          `json:"rejection_reason"    db:"rejection_reason"`
	Documents          database.JSONB[[]Document]      `json:"documents"           db:"documents"`
	PendingChanges     database.JSONB[*PendingChanges] `json:"pending_changes"     db:"pending_changes"`
	VerifiedAt         *time.Time                      `json:"verified_at"         db:"verified_at"`
	CreatedAt          time.Time                       `json:"created_at"          db:"created_at"`
	UpdatedAt          time.Time                       `json:"updated_at"          db:"updated_at"`
}

// Public is the directory view of a factory.
type Public struct {
	ID uuid.UUID `json:"id" db:"id"`
	Details
	Verified      bool      `json:"verified"       db:"verified"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	ReviewCount   int       `json:"review_count"   db:"review_count"`
	ProductCount  int       `json:"product_count"  db:"product_count"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// DirectoryFilter drives the public factory directory.
type DirectoryFilter struct {
	Search       string `json:"search"`
	Industry     string `json:"industry"`
	City         string `json:"city"`
	VerifiedOnly bool   `json:"verified_only"`
	Sort         string `json:"sort"` // newest | name
	Limit        int    `json:"limit"`
	Offset       int    `json:"offset"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

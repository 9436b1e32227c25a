package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/database"
)

// Provider represents a supported way of paying for an order.
type Provider string

const (
	ProviderBankTransfer Provider = "BANK_TRANSFER"
	ProviderCard         Provider = "CARD"
)

// TxStatus represents the internal lifecycle of a payment.
type TxStatus string

const (
	TxPending    TxStatus = "PENDING"
	TxProcessing TxStatus = "PROCESSING"
	TxCompleted  TxStatus = "COMPLETED"
	TxFailed     TxStatus = "FAILED"
	TxRefunded   TxStatus = "REFUNDED"
)

// Terminal reports whether no provider update can change s any more.
// COMPLETED payments can still be refunded by an admin.
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed || s == TxRefunded
}

// Payment is the provider-agnostic record of one payment attempt for an order.
type Payment struct {
	ID                uuid.UUID                       `json:"id"                            db:"id"`
	OrderID           uuid.UUID                       `json:"order_id"                      db:"order_id"`
	PayerID           uuid.UUID                       `json:"payer_id"                      db:"payer_id"`
	Provider          Provider                        `json:"provider"                      db:"provider"`
	ProviderRef       string                          `json:"provider_ref,omitempty"        db:"provider_ref"`
	ProviderStatus    string                          `json:"provider_status,omitempty"     db:"provider_status"`
	Status            TxStatus                        `json:"status"                        db:"status"`
	Amount            float64                         `json:"amount"                        db:"amount"`
	Currency          string                          `json:"currency"                      db:"currency"`
	ProofURL          string                          `json:"proof_url,omitempty"           db:"proof_url"`
	IdempotencyKey    *string                         `json:"idempotency_key,omitempty"     db:"idempotency_key"`
	WebhookReceivedAt *time.Time                      `json:"webhook_received_at,omitempty" db:"webhook_received_at"`
	WebhookPayload    database.JSONB[json.RawMessage] `json:"webhook_payload,omitempty"     db:"webhook_payload"`
	RetryCount        int                             `json:"retry_count"                   db:"retry_count"`
	LastError         string                          `json:"last_error,omitempty"          db:"last_error"`
	CreatedAt         time.Time                       `json:"created_at"                    db:"created_at"`
	UpdatedAt         time.Time                       `json:"updated_at"                    db:"updated_at"`
}

// ListFilter narrows the admin payment listing.
type ListFilter struct {
	Status   TxStatus
	Provider Provider
	Limit    int
	Offset   int
}

// ── Request/Response DTOs ─────────────────────────────────────────────────────

// InitiateRequest is the payload to start paying for an order. A nil Amount
// pays the outstanding balance.
type InitiateRequest struct {
	Provider       string   `json:"provider"   validate:"required,oneof=BANK_TRANSFER CARD"`
	Amount         *float64 `json:"amount"     validate:"omitempty,gt=0"`
	CardToken      string   `json:"card_token" validate:"max=200"`
	IdempotencyKey string   `json:"-"          validate:"max=200"`
}

// WebhookPayload is the normalised inbound callback of a payment provider.
type WebhookPayload struct {
	Provider    Provider
	ExternalRef string
	Status      string
	RawPayload  json.RawMessage
}

// ProviderResponse is what a gateway adapter returns for a call.
type ProviderResponse struct {
	ProviderRef    string `json:"provider_ref"`
	ProviderStatus string `json:"provider_status"`
	Message        string `json:"message,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

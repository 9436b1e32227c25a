package payment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gateway is the provider-agnostic interface every card adapter implements.
type Gateway interface {
	// Initiate asks the provider to charge p and returns its reference.
	Initiate(ctx context.Context, p *Payment, cardToken string) (*ProviderResponse, error)
	// Verify queries the provider for the current status of a charge.
	Verify(ctx context.Context, providerRef string) (*ProviderResponse, error)
	Refund(ctx context.Context, providerRef string, amount float64) (*ProviderResponse, error)
}

// GatewayRegistry maps providers to their Gateway implementations. Bank
// transfers are confirmed by hand and have no gateway.
type GatewayRegistry map[Provider]Gateway

// Sandbox card tokens with fixed outcomes.
const (
	SandboxTokenDeclined = "tok_declined"
	SandboxTokenError    = "tok_error"
)

// ── Card sandbox adapter ──────────────────────────────────────────────────────

type cardSandboxGateway struct {
	apiKey  string
	baseURL string
	logger  *zap.Logger
}

// NewCardSandboxGateway returns a card gateway that authorises every charge
// except the SandboxToken* ones and captures on the first Verify.
func NewCardSandboxGateway(apiKey, baseURL string, logger *zap.Logger) Gateway {
	return &cardSandboxGateway{apiKey: apiKey, baseURL: baseURL, logger: logger}
}

func (g *cardSandboxGateway) Initiate(ctx context.Context, p *Payment, cardToken string) (*ProviderResponse, error) {
	if cardToken == "" {
		return nil, fmt.Errorf("card_token is required for card payments")
	}
	if p.Amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	if cardToken == SandboxTokenError {
		return nil, fmt.Errorf("card gateway %s unavailable", g.baseURL)
	}

	ref := fmt.Sprintf("CARD-%s-%04d", time.Now().UTC().Format("20060102150405"), rand.Intn(10000))
	g.logger.Info("sandbox card charge", zap.String("provider_ref", ref), zap.Float64("amount", p.Amount), zap.String("currency", p.Currency))
	if cardToken == SandboxTokenDeclined {
		return &ProviderResponse{ProviderRef: ref, ProviderStatus: "DECLINED", Message: "Card declined"}, nil
	}
	return &ProviderResponse{ProviderRef: ref, ProviderStatus: "AUTHORIZED", Message: "Charge authorised"}, nil
}

func (g *cardSandboxGateway) Verify(ctx context.Context, providerRef string) (*ProviderResponse, error) {
	return &ProviderResponse{
		ProviderRef:    providerRef,
		ProviderStatus: "CAPTURED",
		Message:        "Charge captured",
	}, nil
}

func (g *cardSandboxGateway) Refund(ctx context.Context, providerRef string, amount float64) (*ProviderResponse, error) {
	ref := fmt.Sprintf("CARD-RF-%s-%04d", time.Now().UTC().Format("20060102"), rand.Intn(10000))
	return &ProviderResponse{
		ProviderRef:    ref,
		ProviderStatus: "REFUNDED",
		Message:        fmt.Sprintf("Refund of %.2f initiated for %s", amount, providerRef),
	}, nil
}

// ── Status normaliser ─────────────────────────────────────────────────────────

// NormaliseStatus maps a provider-specific status string to TxStatus.
func NormaliseStatus(provider Provider, providerStatus string) TxStatus {
	s := strings.ToUpper(strings.TrimSpace(providerStatus))
	switch provider {
	case ProviderCard:
		switch s {
		case "CAPTURED", "SUCCEEDED":
			return TxCompleted
		case "DECLINED", "FAILED", "EXPIRED":
			return TxFailed
		case "REFUNDED":
			return TxRefunded
		case "PENDING":
			return TxPending
		default:
			return TxProcessing
		}
	case ProviderBankTransfer:
		switch s {
		case "RECEIVED":
			return TxCompleted
		case "RETURNED":
			return TxFailed
		default:
			return TxProcessing
		}
	default:
		return TxProcessing
	}
}

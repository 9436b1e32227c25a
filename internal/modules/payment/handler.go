package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// SignatureHeader carries the hex HMAC-SHA256 of a card webhook body.
const SignatureHeader = "X-Card-Signature"

// maxWebhookBytes bounds provider callbacks.
const maxWebhookBytes = 64 << 10

// Handler exposes payment HTTP endpoints.
type Handler struct {
	service        Service
	maxUploadBytes int64
	webhookSecret  string
	logger         *zap.Logger
}

// NewHandler wires the payment routes. Card webhooks are refused unless a
// webhookSecret is configured to verify them.
func NewHandler(service Service, maxUploadBytes int64, webhookSecret string, logger *zap.Logger) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes, webhookSecret: webhookSecret, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(httpx.RequireAuth)
		r.With(httpx.RequireRole(identity.RoleBuyer)).Post("/orders/{order_id}", h.initiate) // Idempotency-Key header honoured
		r.Get("/orders/{order_id}", h.listByOrder)
		r.Get("/{id}", h.get)
		r.Post("/{id}/verify", h.verify)
		r.With(httpx.RequireRole(identity.RoleBuyer)).Post("/{id}/proof", h.uploadProof)
	})

	r.Route("/api/v1/admin/payments", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.list) // GET /api/v1/admin/payments?status=PROCESSING&provider=BANK_TRANSFER
		r.Post("/{id}/confirm", h.confirm)
		r.Post("/{id}/reject", h.reject)
		r.Post("/{id}/refund", h.refund)
	})

	// Provider callbacks: no user auth, signed by the provider.
	r.Post("/api/v1/webhooks/card", h.webhookCard)
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.UUIDParam(r, "order_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req InitiateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	p, err := h.service.Initiate(r.Context(), httpx.Actor(r), orderID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) listByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.UUIDParam(r, "order_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.service.ListByOrder(r.Context(), httpx.Actor(r), orderID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.service.Get)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.service.Verify)
}

func (h *Handler) uploadProof(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	file, _, err := httpx.FormFile(w, r, "file", h.maxUploadBytes)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer file.Close()

	p, err := h.service.UploadProof(r.Context(), httpx.Actor(r), id, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), ListFilter{
		Status:   TxStatus(q.Get("status")),
		Provider: Provider(q.Get("provider")),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req RejectRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Refund(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

// ── Webhook handlers ──────────────────────────────────────────────────────────

func (h *Handler) webhookCard(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httpx.Error(w, r, apperr.Invalid("unreadable payload"))
		return
	}
	if !h.validSignature(body, r.Header.Get(SignatureHeader)) {
		httpx.Error(w, r, apperr.ErrUnauthorized)
		return
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		httpx.Error(w, r, apperr.Invalid("invalid payload"))
		return
	}

	payload := WebhookPayload{
		Provider:    ProviderCard,
		ExternalRef: stringFromMap(raw, "reference", "id", "charge_id"),
		Status:      stringFromMap(raw, "status"),
		RawPayload:  body,
	}
	p, err := h.service.HandleWebhook(r.Context(), payload)
	if err != nil {
		// 200 keeps the provider from retrying callbacks we cannot match.
		h.logger.Warn("card webhook ignored", zap.String("provider_ref", payload.ExternalRef), zap.Error(err))
		httpx.Respond(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]interface{}{"status": "processed", "payment_id": p.ID})
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (h *Handler) byID(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Payment, error)) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := fn(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) validSignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(h.webhookSecret, body)), []byte(signature))
}

// Sign returns the SignatureHeader value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// stringFromMap tries multiple keys and returns the first non-empty string value.
func stringFromMap(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes the admin dashboard.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/admin/analytics", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.analytics)
		r.Get("/orders/daily", h.dailyOrders) // GET /api/v1/admin/analytics/orders/daily?days=30
	})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, a)
}

func (h *Handler) dailyOrders(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("days must be a number"))
			return
		}
		days = n
	}
	list, err := h.service.DailyOrders(r.Context(), days)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

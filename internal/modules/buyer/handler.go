package buyer

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/buyer/profile", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleBuyer))
		r.Get("/", h.get)
		r.Put("/", h.update)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProfile(r.Context(), httpx.Actor(r).UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.UpdateProfile(r.Context(), httpx.Actor(r).UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

package content

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes site content endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/content/{key}", h.get)

	r.Route("/api/v1/admin/content", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.list) // GET /api/v1/admin/content?prefix=home.
		r.Put("/{key}", h.upsert)
		r.Delete("/{key}", h.delete)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, e)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	e, err := h.service.Upsert(r.Context(), httpx.Actor(r).UserID, chi.URLParam(r, "key"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, e)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package review

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes review endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.With(httpx.RequireRole(identity.RoleBuyer)).Post("/orders/{order_id}", h.create)
		r.Get("/factories/{factory_id}", h.forFactory)
	})

	r.Route("/api/v1/admin/reviews", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.listAll) // GET /api/v1/admin/reviews?factory_id=&max_rating=2
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.UUIDParam(r, "order_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req CreateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	rv, err := h.service.Create(r.Context(), httpx.Actor(r).UserID, orderID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, rv)
}

func (h *Handler) forFactory(w http.ResponseWriter, r *http.Request) {
	factoryID, err := httpx.UUIDParam(r, "factory_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	page := httpx.PageFrom(r)
	sum, err := h.service.ForFactory(r.Context(), factoryID, page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sum)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	f := ListFilter{Limit: page.Limit, Offset: page.Offset}
	q := r.URL.Query()
	if v := q.Get("factory_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("invalid factory_id"))
			return
		}
		f.FactoryID = &id
	}
	if v := q.Get("max_rating"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("invalid max_rating"))
			return
		}
		f.MaxRating = n
	}
	list, err := h.service.ListAll(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

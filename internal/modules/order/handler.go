package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes order HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(httpx.RequireAuth)
		r.With(httpx.RequireRole(identity.RoleBuyer)).Post("/", h.placeOrder) // POST  /api/v1/orders
		r.Get("/", h.listOwn)                                                 // GET   /api/v1/orders?status=SHIPPED
		r.Get("/{id}", h.getOrder)                                            // GET   /api/v1/orders/{id}
		r.Get("/number/{number}", h.getOrderByNumber)                         // GET   /api/v1/orders/number/{number}
		r.Patch("/{id}/status", h.updateStatus)                               // PATCH /api/v1/orders/{id}/status
	})

	r.Route("/api/v1/admin/orders", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.listAll) // GET /api/v1/admin/orders?status=&buyer_id=&factory_id=
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.service.PlaceOrder(r.Context(), httpx.Actor(r).UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, o)
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	status := OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.service.ListOwn(r.Context(), httpx.Actor(r), status, page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.service.Get(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetByNumber(r.Context(), httpx.Actor(r), chi.URLParam(r, "number"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req UpdateStatusRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), httpx.Actor(r), id, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	q := r.URL.Query()
	f := ListFilter{Status: OrderStatus(q.Get("status")), Limit: page.Limit, Offset: page.Offset}
	for param, dst := range map[string]**uuid.UUID{"buyer_id": &f.BuyerID, "factory_id": &f.FactoryID} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, r, apperr.Invalid("%s must be a UUID", param))
			return
		}
		*dst = &id
	}
	orders, err := h.service.ListAll(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

package dispute

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/identity"
)

// Handler exposes dispute endpoints.
type Handler struct {
	service        Service
	maxUploadBytes int64
}

func NewHandler(service Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/disputes", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleBuyer, identity.RoleFactory, identity.RoleAdmin))
		r.Post("/orders/{order_id}", h.open)
		r.Get("/", h.listOwn) // GET /api/v1/disputes?status=OPEN
		r.Get("/{id}", h.get)
		r.Post("/{id}/evidence", h.uploadEvidence)
	})

	r.Route("/api/v1/admin/disputes", func(r chi.Router) {
		r.Use(httpx.RequireRole(identity.RoleAdmin))
		r.Get("/", h.listAll)
		r.Post("/{id}/resolve", h.resolve)
		r.Post("/{id}/reject", h.reject)
	})
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.UUIDParam(r, "order_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req OpenRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.service.Open(r.Context(), httpx.Actor(r), orderID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, d)
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListOwn(r.Context(), httpx.Actor(r), Status(r.URL.Query().Get("status")), page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.service.Get(r.Context(), httpx.Actor(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, d)
}

func (h *Handler) uploadEvidence(w http.ResponseWriter, r *http.Request) {
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

	d, err := h.service.UploadEvidence(r.Context(), httpx.Actor(r), id, file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, d)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageFrom(r)
	list, err := h.service.ListAll(r.Context(), Status(r.URL.Query().Get("status")), page.Limit, page.Offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req ResolveRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.service.Resolve(r.Context(), httpx.Actor(r).UserID, id, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, d)
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
	d, err := h.service.Reject(r.Context(), httpx.Actor(r).UserID, id, req.Resolution)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, d)
}
